package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "bikeman/cmd/ixsi-service/docs"
	"bikeman/internal/config"
	"bikeman/internal/logger"
	"bikeman/pkg/logging"
)

const serviceName = "ixsi-service"

var (
	configFile string
)

// @title           Bikeman IXSI Service API
// @version         1.0
// @description     HTTP gateway for IXSI request envelopes and operator views of the subscription registry

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey  OpsToken
// @in                          header
// @name                        Authorization

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "IXSI dispatch and subscription service",
		Long:  "Answers IXSI request envelopes from partner systems over Kafka and HTTP",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the IXSI service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
				if configFile == "" {
					earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
					return fmt.Errorf("config file is required")
				}
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()
			if named, ok := log.(*logger.SugaredLogger); ok {
				named.SetServiceName(serviceName)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx = logging.WithServiceName(ctx, serviceName)

			log.InfowCtx(ctx, "Starting IXSI service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				_ = app.Shutdown(ctx)
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}
