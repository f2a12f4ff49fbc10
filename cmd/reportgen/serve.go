package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"reportgen/internal/config"
	"reportgen/internal/database"
	"reportgen/internal/handlers"
	"reportgen/internal/llm"
	"reportgen/internal/logger"
	"reportgen/internal/reports"
	"reportgen/internal/server"
	"reportgen/internal/settings"
	"reportgen/internal/storage"
	"reportgen/internal/tables"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("port", "", "listen port")
	flags.String("storage-mode", "", "upload storage: local or gcs")
	flags.String("upload-dir", "", "local upload root, served under /static")
	flags.String("gcs-bucket", "", "bucket for gcs storage mode")
	flags.String("settings-file", "", "JSON settings document")

	mustBind(v.BindPFlag(config.KeyListenPort, flags.Lookup("port")))
	mustBind(v.BindPFlag(config.KeyStorageMode, flags.Lookup("storage-mode")))
	mustBind(v.BindPFlag(config.KeyUploadDir, flags.Lookup("upload-dir")))
	mustBind(v.BindPFlag(config.KeyGCSBucket, flags.Lookup("gcs-bucket")))
	mustBind(v.BindPFlag(config.KeySettingsFile, flags.Lookup("settings-file")))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	if strings.HasPrefix(strings.ToLower(cfg.LogMode), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	blobs, err := storage.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() {
		if err := storage.Close(blobs); err != nil {
			log.Warn("Failed to close storage client", "error", err)
		}
	}()
	store := settings.NewStore(cfg.SettingsFile, log)
	llmClient := llm.NewClient(store, cfg.LLMTimeout, log)
	svc := reports.NewService(db, tables.NewRegistry(), log)

	rc := server.RouterConfig{
		ReportTypeHandler: handlers.NewReportTypeHandler(log, svc, cfg.MaxUploadBytes),
		RecordHandler:     handlers.NewRecordHandler(log, svc, cfg.MaxUploadBytes),
		APIHandler:        handlers.NewAPIHandler(log, svc, llmClient, blobs, cfg.MaxUploadBytes),
		SettingsHandler:   handlers.NewSettingsHandler(log, store, llmClient),
	}
	if cfg.StorageMode == config.StorageLocal {
		rc.StaticDir = cfg.UploadDir
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           server.NewRouter(rc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr, "storage", cfg.StorageMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
