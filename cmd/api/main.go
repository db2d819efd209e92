package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"authgate.io/internal/auth"
	"authgate.io/internal/config"
	"authgate.io/internal/httpapi"
	"authgate.io/internal/ids"
	"authgate.io/internal/obs"
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
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	defer db.Close()

	redis, err := auth.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("open redis: %v", err)
	}
	defer redis.Close()

	store := auth.NewPGStore(db)

	tokens, err := auth.NewTokenService(cfg.TokenSecret, redis,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	recorder := auth.NewRecorder(store.Audit(context.Background()))
	svc := auth.NewService(store, tokens, recorder,
		auth.WithLicenseCache(redis, cfg.LicenseCheckInterval),
	)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := bootstrapAdmin(context.Background(), store, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db, Redis: redis}, svc, tokens, version)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authgate-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}

// bootstrapAdmin creates the system organization and admin user on first
// start. Existing accounts are left untouched.
func bootstrapAdmin(ctx context.Context, store auth.Store, email, password string) error {
	users := store.Users(ctx)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, auth.ErrNotFound) {
		return err
	}

	orgs := store.Organizations(ctx)
	org, err := orgs.FindByName(ctx, "System")
	if errors.Is(err, auth.ErrNotFound) {
		now := time.Now().UTC()
		org = &auth.Organization{
			ID:               ids.New(),
			Name:             "System",
			LicenseType:      auth.LicenseEnterprise,
			LicenseExpiresAt: now.AddDate(1, 0, 0),
			MaxUsers:         100,
			FeaturesEnabled:  []string{"all"},
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &auth.User{
		ID:             ids.New(),
		Email:          email,
		PasswordHash:   hash,
		FullName:       "System Administrator",
		Role:           auth.RoleAdmin,
		OrganizationID: org.ID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("Bootstrapped admin user %s", email)
	return nil
}
