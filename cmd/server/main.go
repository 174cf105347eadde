package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/partyphoto/internal/api"
	"github.com/zzenonn/partyphoto/internal/app"
	"github.com/zzenonn/partyphoto/internal/config"
	"github.com/zzenonn/partyphoto/internal/logging"
)

const shutdownTimeout = 15 * time.Second

var (
	configPath string
	cfg        *config.Config
	handler    *api.Handler
)

var rootCmd = &cobra.Command{
	Use:   "partyphoto-server",
	Short: "HTTP API for party photo sharing",
	Long:  "Serves photo listing, batch upload, soft delete and passwordless login over JSON/HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	deps, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	authService, err := deps.AuthService()
	if err != nil {
		log.Fatalf("Failed to initialize login: %v", err)
	}

	handler = api.NewHandler(deps.Photos, authService, app.NewLoginLimiter(cfg))
}

func serve() error {
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(handler, cfg.TrustedProxies)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("listen-addr", ":8080", "address to listen on")
	rootCmd.PersistentFlags().String("trusted-proxies", "", "comma separated proxy IPs or CIDRs allowed to set X-Forwarded-For")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
