package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/restqlite/restqlite/pkg/httputil"
	mw "github.com/restqlite/restqlite/pkg/httputil/middleware"
	"github.com/restqlite/restqlite/pkg/metrics"
	"github.com/restqlite/restqlite/pkg/rest"
	"github.com/restqlite/restqlite/pkg/sqlite"
	"github.com/restqlite/restqlite/pkg/util/rand"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Starts a REST API server that exposes the SQLite database's tables through HTTP endpoints`,
	Run:   runServer,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("server.database", "d", "", "path to the SQLite database file")
	f.StringP("server.listenAddr", "l", "", "REST server listen address")
	f.String("server.metricsAddr", "", "Prometheus metrics listen address (disabled when empty)")
	f.String("server.tlsCert", "", "TLS certificate file")
	f.String("server.tlsKey", "", "TLS key file")
	f.String("auth.secret", "", "token signing secret")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func newLogger(level string) *zap.Logger {
	if level == "none" {
		return zap.NewNop()
	}
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func runServer(cmd *cobra.Command, args []string) {
	logger := newLogger(logLevel)
	defer logger.Sync()

	if cfg == nil {
		logger.Fatal("configuration not loaded")
	}

	// flag overrides
	if v := viper.GetString("server.database"); v != "" {
		cfg.Server.Database = v
	}
	if v := viper.GetString("server.listenAddr"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := viper.GetString("server.metricsAddr"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := viper.GetString("auth.secret"); v != "" {
		cfg.Auth.Secret = v
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		// tokens won't survive a restart without a configured secret
		secret = rand.NewSecret()
		logger.Warn("no signing secret configured, generated a per-process secret")
	}

	db, err := sqlite.Open(cfg.Server.Database)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.Server.Database), zap.Error(err))
	}
	defer db.Close()

	var routerOpts []httputil.RouterOptions
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS key pair", zap.Error(err))
		}
		routerOpts = append(routerOpts, httputil.WithServerOptions(func(s *http.Server) {
			s.TLSConfig = &tls.Config{
				MinVersion:   tls.VersionTLS12,
				Certificates: []tls.Certificate{cert},
			}
		}))
	}

	server := rest.NewServer(db, rest.Options{
		SigningSecret: secret,
		TokenTTL:      cfg.Auth.TokenTTL,
		Logger:        logger,
		RouterOptions: routerOpts,
	})

	server.AddMiddleware(
		mw.RequestID,
		mw.CORSWithOptions(nil),
		mw.Instrument,
	)
	if logLevel != "none" {
		server.AddMiddleware(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if cfg.Server.MetricsAddr != "" {
		metrics.StartPrometheusServer(ctx, &wg, logger, &metrics.PromServerOpts{Addr: cfg.Server.MetricsAddr})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()
}
