package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bulletd/bulletd/api"
	"github.com/bulletd/bulletd/daemon"
	"github.com/bulletd/bulletd/notify"
	"github.com/bulletd/bulletd/push"
	"github.com/bulletd/bulletd/pushbullet"
	"github.com/bulletd/bulletd/tool"
	"github.com/bulletd/bulletd/types"
)

func main() {
	flags := tool.SetFlags()
	tool.InitLogger(flags.Debug)

	cfg, err := tool.LoadConfig()
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	apiKey, err := tool.GetAPIKey(tool.APIKeyPath())
	if err != nil {
		if errors.Is(err, tool.ErrMissingAPIKey) {
			os.Exit(1)
		}
		tool.DefaultLogger.Fatalf("%v", err)
	}
	password := tool.GetEncryptionPassword(tool.PasswordPath())

	account := pushbullet.NewAccount(cfg, apiKey, password)

	sink, err := notify.NewSink(cfg.IconPath, cfg.NotifyRate, cfg.NotifyBurst)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	status := daemon.NewStatus()
	if cfg.StatusAPI {
		server := api.NewServer(cfg.StatusPort, status)
		go func() {
			if err := server.Start(); err != nil {
				tool.DefaultLogger.Errorf("Status API stopped: %v", err)
			}
		}()
	}

	supervisor := &daemon.Supervisor{
		Prober: tool.NewProber(cfg.ProbeHost, cfg.ProbePort),
		Connect: func(onPush func(types.Event) error) (daemon.Stream, error) {
			// The error callback re-raises: every stream-level failure
			// uniformly ends the attempt and triggers a recover cycle.
			return pushbullet.NewListener(cfg, apiKey, onPush, func(err error) error {
				return err
			}), nil
		},
		Sink: sink,
		Classify: func(event types.Event) (*types.Candidate, error) {
			return push.Classify(account, event)
		},
		Dedup:  push.NewDeduper(time.Duration(cfg.DedupTTL) * time.Second),
		Status: status,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := supervisor.Run(ctx); err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
}
