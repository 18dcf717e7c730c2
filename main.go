package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linker/global"
	"linker/global/config"
	"linker/logger"
	mid "linker/middleware"
	"linker/service/chat"
	"linker/service/chat/handlers"
)

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn("log level", zap.Error(err))
	}
	defer logger.Sync()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("relay stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	log := logger.Named("linker")

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := global.ConfigAll(bootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer res.Close()

	store, err := global.NewMessageStore(bootCtx, cfg, res)
	if err != nil {
		return err
	}
	accounts, err := global.NewAccountStore(bootCtx, cfg, res)
	if err != nil {
		return err
	}
	lookup := global.NewIdentityLookup(cfg, accounts)
	auth, err := global.NewAuthenticator(cfg, lookup)
	if err != nil {
		return err
	}

	policy := mid.NewOriginPolicy(cfg.Server.AllowedOrigins, log.Named("origin"))
	if policy.AllowAll() {
		log.Warn("origin check disabled, any site may open a socket")
	}
	connMgr := chat.NewConnManager(chat.ManagerConf{UnauthTTL: cfg.Chat.UnauthTTL})
	relay := chat.NewServer(chat.Options{
		StoreTimeout:     cfg.Chat.StoreTimeout,
		AuthTimeout:      cfg.Chat.AuthTimeout,
		MaxContentLength: cfg.Chat.MaxContentLength,
		SendQueue:        cfg.Chat.SendQueue,
		JobQueue:         cfg.Chat.JobQueue,
		EvictSlow:        cfg.Chat.EvictSlow,
		PresenceRefresh:  cfg.Redis.PresenceTTL / 2,
		CheckOrigin:      policy.Check,
	}, store, auth, connMgr, log.Named("chat"))
	handlers.RegisterAll(relay)
	global.AttachSinks(relay, cfg, res, log)

	router := global.NewRouter(global.RouterDeps{
		Relay:  relay,
		Lookup: lookup,
		Login:  global.NewLoginService(cfg, accounts),
		Policy: policy,
		Log:    log,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("relay listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("node", cfg.Server.NodeID),
			zap.String("store", cfg.Store.Driver),
			zap.String("auth", cfg.Chat.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer scancel()
	// hijacked websocket conns are not tracked by http.Server
	relay.Shutdown(sctx)
	return srv.Shutdown(sctx)
}
