package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ensuregen/internal/core/api"
	"github.com/solatis/ensuregen/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC compile service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("on-failure", "continue", "default on-failure mode (continue, halt)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	database, cache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	service, err := api.NewCompilerService(a.cfg, cache, a.log, Version)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(a.cfg.Server, service, a.log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.log.Info("starting compile service",
		zap.String("version", Version),
		zap.String("addr", a.cfg.Server.Addr()))
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		a.log.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	}
}
