// Command gateway is the DG-ID fan-out switch: it bridges a local YSF
// modem to YSF/FCS/IMRS reflectors selected by DG-ID or Wires-X
// command, spec.md §4.1.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbehnke/ysf-gateway/internal/config"
	"github.com/dbehnke/ysf-gateway/internal/gwswitch"
	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/link"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/remote"
	"github.com/dbehnke/ysf-gateway/internal/wiresx"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

var (
	version   = "dev"
	gitHash   = "unknown"
	showVer   bool
)

func main() {
	root := &cobra.Command{
		Use:           "gateway [config-file-path]",
		Short:         "YSF DG-ID fan-out gateway",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		RunE:          run,
	}
	root.Flags().BoolVarP(&showVer, "version", "v", false, "print version and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if showVer {
		fmt.Printf("gateway %s (%s)\n", version, gitHash)
		return nil
	}

	configFile := ""
	if len(args) == 1 {
		configFile = args[0]
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	g, err := newGateway(cfg, log)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	defer g.close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	last := time.Now()
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Info("SIGHUP received, reloading configuration")
				newCfg, err := config.Load(configFile)
				if err != nil {
					log.Warn("config reload failed, keeping previous configuration")
					continue
				}
				g.close()
				g, err = newGateway(newCfg, log)
				if err != nil {
					log.Error(err.Error())
					os.Exit(1)
				}
				continue
			default:
				log.Info("shutting down")
				return nil
			}
		default:
		}

		now := time.Now()
		elapsed := int(now.Sub(last) / time.Millisecond)
		last = now

		g.modem.Read()
		if f := g.modem.pending; f != nil {
			g.sw.ProcessRFFrame(f)
			g.modem.pending = nil
		}
		g.sw.Tick(elapsed)
		if g.remote != nil {
			g.remote.Dispatch()
		}

		if elapsed < 5 {
			time.Sleep(time.Duration(5-elapsed) * time.Millisecond)
		}
	}
}

type modemSocket struct {
	socket     *netutil.UDPSocket
	pending    *ysf.Frame
	rptAddr    *net.UDPAddr // statically configured modem destination, [Network] rpt_address/rpt_port
	lastSender *net.UDPAddr // most recent sender, fallback when rptAddr is unset
}

func (m *modemSocket) Read() {
	buf := make([]byte, ysf.FrameLength)
	n, addr, err := m.socket.Read(buf)
	if err != nil || n != ysf.FrameLength {
		return
	}
	f, err := ysf.ParseFrame(buf)
	if err != nil {
		return
	}
	m.lastSender = addr
	m.pending = f
}

// WriteRF sends f to the modem's statically configured address, or the
// last-seen sender if none was configured, spec.md §4.1.
func (m *modemSocket) WriteRF(f *ysf.Frame) {
	dst := m.rptAddr
	if dst == nil {
		dst = m.lastSender
	}
	if dst == nil {
		return
	}
	_ = m.socket.WriteTo(f.Bytes(), dst)
}

type gateway struct {
	sw     *gwswitch.Switch
	modem  *modemSocket
	remote *remote.Server
}

func newGateway(cfg *config.Config, log *logging.Logger) (*gateway, error) {
	registry := hostlist.NewRegistry()
	var allEntries []hostlist.Entry
	if cfg.YSFNetwork.HostsFile != "" {
		if entries, err := hostlist.LoadHostsJSON(cfg.YSFNetwork.HostsFile); err == nil {
			allEntries = append(allEntries, entries...)
		} else {
			log.Warn("failed to load hosts file: " + err.Error())
		}
	}
	if cfg.FCSNetwork.RoomsFile != "" {
		if entries, err := hostlist.LoadFCSRooms(cfg.FCSNetwork.RoomsFile); err == nil {
			allEntries = append(allEntries, entries...)
		} else {
			log.Warn("failed to load FCS rooms file: " + err.Error())
		}
	}
	registry.Reload(allEntries)

	modem := &modemSocket{socket: netutil.NewUDPSocket(cfg.Network.LocalAddress, cfg.Network.LocalPort)}
	if err := modem.socket.Open(); err != nil {
		return nil, fmt.Errorf("gateway: open modem socket: %w", err)
	}
	if cfg.Network.RptAddress != "" {
		if ip := net.ParseIP(cfg.Network.RptAddress); ip != nil {
			modem.rptAddr = &net.UDPAddr{IP: ip, Port: cfg.Network.RptPort}
		} else {
			log.Warn("invalid network.rpt_address, falling back to last-seen sender")
		}
	}

	writeRF := modem.WriteRF

	engine := wiresx.NewEngine(cfg.General.Callsign, cfg.General.Suffix, registry)
	engine.SetInfo(cfg.Reflector.Name, cfg.Info.TXFrequency, cfg.Info.RXFrequency)

	sw := gwswitch.NewSwitch(engine, registry, writeRF, log)
	sw.SetWiresXEnabled(cfg.YSFNetwork.EnableWiresX)

	if cfg.YSFNetwork.Enabled {
		ysfLink, err := link.NewYSFLink(cfg.General.Callsign, cfg.YSFNetwork.LocalAddress, cfg.YSFNetwork.LocalPort, cfg.YSFNetwork.DstAddress, cfg.YSFNetwork.DstPort, cfg.YSFNetwork.Static, log)
		if err != nil {
			log.Warn("YSF network disabled: " + err.Error())
		} else {
			entry := &gwswitch.DGIDEntry{
				DGId:          0,
				Kind:          gwswitch.KindYSF,
				Static:        cfg.YSFNetwork.Static,
				RFHangTimeMS:  cfg.YSFNetwork.HangTimeMS,
				NetHangTimeMS: cfg.YSFNetwork.HangTimeMS,
				AllowedModes:  ysf.DTVD1 | ysf.DTVD2 | ysf.DTVoiceFR | ysf.DTDataFR,
				NetDGId:       0,
				Link:          ysfLink,
			}
			if err := sw.AddEntry(entry); err != nil {
				log.Warn("YSF network entry failed: " + err.Error())
			}
		}
	}

	for _, dg := range cfg.DGIds {
		entry := &gwswitch.DGIDEntry{
			DGId:          dg.DGId,
			Static:        dg.Static,
			RFHangTimeMS:  dg.RFHangTimeMS,
			NetHangTimeMS: dg.NetHangTimeMS,
			NetDGId:       dg.NetDGId,
			AllowedModes:  allowedModesFromStrings(dg.AllowedModes),
		}
		switch dg.Kind {
		case "fcs":
			entry.Kind = gwswitch.KindFCS
			fcsLink, err := link.NewFCSLink(cfg.General.Callsign, cfg.FCSNetwork.LocalAddress, 0, dg.Address, dg.Static, cfg.Info.RXFrequency, cfg.Info.TXFrequency, cfg.Info.Location, cfg.FCSNetwork.ID, log)
			if err != nil {
				log.Warn("FCS dgid entry disabled: " + err.Error())
				continue
			}
			entry.Link = fcsLink
		default:
			entry.Kind = gwswitch.KindYSF
		}
		if err := sw.AddEntry(entry); err != nil {
			log.Warn("dgid entry failed: " + err.Error())
		}
	}

	var remoteSrv *remote.Server
	if cfg.RemoteCommands.Enabled {
		remoteSrv = remote.New(cfg.RemoteCommands.LocalAddress, cfg.RemoteCommands.LocalPort, sw, registry, log)
		if err := remoteSrv.Open(); err != nil {
			log.Warn("remote command server disabled: " + err.Error())
			remoteSrv = nil
		}
	}

	return &gateway{sw: sw, modem: modem, remote: remoteSrv}, nil
}

func (g *gateway) close() {
	if g.modem != nil {
		_ = g.modem.socket.Close()
	}
	if g.remote != nil {
		_ = g.remote.Close()
	}
}

func allowedModesFromStrings(modes []string) uint8 {
	if len(modes) == 0 {
		return ysf.DTVD1 | ysf.DTVD2 | ysf.DTVoiceFR | ysf.DTDataFR
	}
	var bits uint8
	for _, m := range modes {
		switch m {
		case "vd1":
			bits |= ysf.DTVD1
		case "vd2":
			bits |= ysf.DTVD2
		case "voice_fr":
			bits |= ysf.DTVoiceFR
		case "data_fr":
			bits |= ysf.DTDataFR
		}
	}
	return bits
}
