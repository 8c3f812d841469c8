// Command parrot runs a standalone YSF echo endpoint: it records an
// incoming transmission and plays it back to the sender after a fixed
// turnaround, spec.md §4.9.
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
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/parrot"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

var (
	version = "dev"
	gitHash = "unknown"
	showVer bool
)

func main() {
	root := &cobra.Command{
		Use:          "parrot [config-file-path]",
		Short:        "YSF record/replay echo endpoint",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().BoolVarP(&showVer, "version", "v", false, "print version and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if showVer {
		fmt.Printf("parrot %s (%s)\n", version, gitHash)
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
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	socket := netutil.NewUDPSocket(cfg.Network.LocalAddress, cfg.Network.LocalPort)
	if err := socket.Open(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	defer socket.Close()

	store := parrot.New(cfg.Parrot.TimeoutSeconds)
	var remoteAddr *net.UDPAddr
	sched := parrot.NewScheduler(store, func(f *ysf.Frame) {
		if remoteAddr != nil {
			_ = socket.WriteTo(f.Bytes(), remoteAddr)
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	last := time.Now()
	for {
		select {
		case <-sigCh:
			log.Info("shutting down")
			return nil
		default:
		}

		now := time.Now()
		elapsed := int(now.Sub(last) / time.Millisecond)
		last = now

		buf := make([]byte, ysf.FrameLength)
		n, addr, err := socket.Read(buf)
		if err == nil && n == ysf.FrameLength {
			if f, ferr := ysf.ParseFrame(buf); ferr == nil {
				remoteAddr = addr
				store.Write(f)
				if f.EOT() {
					sched.Arm()
				}
			}
		}

		sched.Clock(elapsed)

		if elapsed < 5 {
			time.Sleep(time.Duration(5-elapsed) * time.Millisecond)
		}
	}
}
