// Command reflector is the star-topology YSF reflector server:
// registers peers, fans out transmissions, enforces the blocklist,
// and serves a live status feed, spec.md §4.7.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbehnke/ysf-gateway/internal/blocklist"
	"github.com/dbehnke/ysf-gateway/internal/config"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/reflector"
	"github.com/dbehnke/ysf-gateway/internal/status"
)

var (
	version = "dev"
	gitHash = "unknown"
	showVer bool
)

func main() {
	root := &cobra.Command{
		Use:          "reflector [config-file-path]",
		Short:        "YSF star-topology reflector",
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
		fmt.Printf("reflector %s (%s)\n", version, gitHash)
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

	var bl *blocklist.List
	if cfg.BlockList.Enabled {
		bl = blocklist.New(cfg.BlockList.File, int(cfg.BlockList.ReloadPeriod/time.Millisecond))
	}

	var audit *blocklist.Auditor
	if cfg.BlockList.Enabled && cfg.BlockList.File != "" {
		if a, err := blocklist.NewAuditor(cfg.BlockList.File + ".audit.db"); err == nil {
			audit = a
			defer audit.Close()
		} else {
			log.Warn("blocklist audit database unavailable: " + err.Error())
		}
	}

	r := reflector.New(reflector.Config{
		ID:          cfg.Reflector.ID,
		Name:        cfg.Reflector.Name,
		Description: cfg.Reflector.Description,
		LocalAddr:   cfg.Reflector.LocalAddress,
		LocalPort:   cfg.Reflector.LocalPort,
		BlockList:   bl,
		Audit:       audit,
	}, log)
	if err := r.Open(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	defer r.Close()

	if cfg.Status.Enabled {
		srv := status.New(r, log)
		r.SetEventSink(srv.Broadcast)
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.Status.LocalAddress, cfg.Status.LocalPort)
			log.Info("status server listening on " + addr)
			_ = http.ListenAndServe(addr, srv.Handler())
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	last := time.Now()
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				log.Info("SIGHUP received; the reflector does not reload its configuration in place and keeps running")
				continue
			}
			log.Info("shutting down")
			return nil
		default:
		}

		now := time.Now()
		elapsed := int(now.Sub(last) / time.Millisecond)
		last = now

		r.Dispatch()
		r.Tick(elapsed)

		if bl != nil {
			bl.Clock(elapsed)
		}

		if elapsed < 5 {
			time.Sleep(time.Duration(5-elapsed) * time.Millisecond)
		}
	}
}
