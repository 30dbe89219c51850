package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"printwatch/internal/api"
	"printwatch/internal/auth"
	"printwatch/internal/config"
	"printwatch/internal/relay"
	"printwatch/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func bridgeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Fan stdin out to WebSocket listeners",
		Long: `Reads JSON lines from stdin and rebroadcasts each one to every
connected WebSocket client, replaying recent history to new arrivals.
Line content is opaque: raw telemetry, anomaly events, or anything
else line-oriented rides through unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			return runBridge(cfg, log)
		},
	}
}

func runBridge(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history := storage.NewLineBuffer(cfg.Bridge.HistorySize)
	pump := relay.NewPump(cfg.Bridge.QueueSize, log)
	lines := pump.Start(os.Stdin)

	hub := relay.NewHub(history, log)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx, lines)
	}()

	authMgr := auth.NewManager(cfg.Bridge.Auth)
	handler := api.NewHandler(hub, pump, authMgr, log)
	server := &http.Server{
		Addr:    cfg.Bridge.ListenAddr,
		Handler: api.NewRouter(handler),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr": cfg.Bridge.ListenAddr,
			"auth": authMgr.Enabled(),
		}).Info("bridge listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case <-hubDone:
		log.Info("input drained, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	stop()
	<-hubDone
	log.Info("bridge stopped")
	return nil
}
