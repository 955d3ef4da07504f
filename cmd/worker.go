/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/blogsphere/apiserver/config"
	"github.com/blogsphere/apiserver/internal/mq"
	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes domain events from the message queue",
	Long: `Consumes domain events published by the server: deletes released photos
from the image host and logs post and comment activity. Requires MQ_BACKEND.

	blogsphere worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			if errors.Is(err, mq.ErrDisabled) {
				return errors.New("worker requires MQ_BACKEND to be set")
			}
			return err
		}
		defer func() {
			_ = broker.Close()
		}()

		var photos worker.PhotoDeleter
		objectStore, err := storage.FromConfig(ctx, cfg.Storage)
		switch {
		case errors.Is(err, storage.ErrDisabled):
		case err != nil:
			return err
		default:
			photos = services.NewPhotoService(objectStore, nil, cfg.Storage.Folder, cfg.HTTP.MaxPhotoBytes, logger)
		}

		logger.Info("worker started", zap.String("mq_backend", cfg.MQ.Backend))
		if err := worker.New(broker, photos, logger).Run(ctx); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		logger.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
