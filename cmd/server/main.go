package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/authgate/internal/app"
	"github.com/vovakirdan/authgate/internal/config"
	"github.com/vovakirdan/authgate/internal/host"
	"github.com/vovakirdan/authgate/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "authgate",
		Short:        "Login interception engine for Minecraft-compatible servers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	})
	return root
}

func run(configPath string) error {
	bootstrap := log.New("info")
	cfg, resolvedPath, err := config.Load(bootstrap, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(cfg.Log.Level)
	logger.Info().Str("config", resolvedPath).Msg("configuration loaded")

	// The login wire protocol fixes the key size at 1024 bits.
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}
	h := host.NewLocal("java", 766, key)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, h, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("platform", h.Platform()).
		Int("protocol", h.ProtocolVersion()).
		Msg("starting authgate")
	if err := application.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}
