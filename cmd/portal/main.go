package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yoronex/gewisweb/internal/auth"
	"github.com/Yoronex/gewisweb/internal/config"
	"github.com/Yoronex/gewisweb/internal/httpapi"
	"github.com/Yoronex/gewisweb/internal/obs"
	"github.com/Yoronex/gewisweb/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	store := auth.NewPGStore(db.DB())
	authService := auth.NewService(store,
		auth.WithPasswordCost(cfg.PasswordCost),
		auth.WithLoginThrottle(auth.NewLoginThrottle(
			store.LoginAttempts(), cfg.LoginAttemptLimit, cfg.LoginAttemptWindow,
		)),
	)
	appService := auth.NewAppService(store.Apps(), store.AuthRecords())

	api := httpapi.New(httpapi.Config{
		Auth:         authService,
		Apps:         appService,
		Keys:         auth.Keyring{PrivatePath: cfg.JWTKeyPath, PublicPath: cfg.JWTPubKeyPath},
		Redirect:     httpapi.StrategyFromName(cfg.RedirectStrategy),
		CookieDomain: cfg.CookieDomain,
		Production:   cfg.Production(),
		ReadyProbe:   httpapi.ReadyProbe{DB: db.DB()},
		Version:      version,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gewisweb %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
