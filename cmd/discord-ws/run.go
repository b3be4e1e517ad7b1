package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"discord-cli-ws/internal/config"
	"discord-cli-ws/internal/gateway"
	"discord-cli-ws/internal/ops"
	"discord-cli-ws/internal/session"
)

func runCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and keep the session alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			log, err := buildLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dialer := &gateway.Dialer{
				HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
				Fwmark:           cfg.Gateway.Fwmark,
				Logger:           log.Named("gateway"),
			}
			sess := session.New(dialer, session.Config{
				URL:          cfg.Gateway.URL,
				Token:        cfg.Identify.Token,
				Intents:      cfg.Identify.Intents,
				HelloTimeout: cfg.Session.HelloTimeout,
			}, log.Named("session"))

			if cfg.Ops.Addr != "" {
				go func() {
					err := ops.Serve(ctx, cfg.Ops.Addr, func() any { return sess.Status() })
					if err != nil {
						log.Warn("ops server stopped", zap.Error(err))
					}
				}()
				log.Info("ops endpoint listening", zap.String("addr", cfg.Ops.Addr))
			}

			runner := session.NewRunner(sess, session.Backoff{
				Min:    cfg.Session.Reconnect.Min,
				Max:    cfg.Session.Reconnect.Max,
				Factor: cfg.Session.Reconnect.Factor,
				Jitter: cfg.Session.Reconnect.Jitter,
			}, log.Named("runner"))

			err = runner.Run(ctx)
			if errors.Is(err, context.Canceled) {
				log.Info("shutting down")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "config.yaml", "config path")
	return cmd
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
