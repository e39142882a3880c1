package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/example/leaderauth/internal/config"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type App struct {
	Store       Store
	Revocations RevocationStore
	Signer      *TokenSigner
	Log         *zap.Logger
	Validate    *validator.Validate
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := a.Store.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", a.HandleRegister).Methods("POST")
	v1.HandleFunc("/auth/login", a.HandleLogin).Methods("POST")
	v1.HandleFunc("/auth/refresh", a.HandleRefresh).Methods("POST")
	v1.HandleFunc("/scores/top", a.HandleTopScore).Methods("GET")
	v1.HandleFunc("/scores/average", a.HandleAveragePoint).Methods("GET")

	// Everything below goes through the token gate.
	protected := v1.NewRoute().Subrouter()
	protected.Use(a.Authenticate)
	protected.HandleFunc("/auth/logout", a.HandleLogout).Methods("POST")
	protected.HandleFunc("/auth/validate", a.HandleValidate).Methods("GET")
	protected.HandleFunc("/users", a.HandleListUsers).Methods("GET")
	protected.HandleFunc("/users/me", a.HandleGetProfile).Methods("GET")
	protected.HandleFunc("/users/me", a.HandleUpdateProfile).Methods("PUT")
	protected.HandleFunc("/users/me", a.HandleDeleteAccount).Methods("DELETE")
	protected.HandleFunc("/users/me/points", a.HandleIncrementPoint).Methods("POST")

	// Legacy paths kept for clients of the original API (will be deprecated)
	legacy := r.PathPrefix("/api").Subrouter()
	legacy.HandleFunc("/register", a.HandleRegister).Methods("POST")
	legacy.HandleFunc("/login", a.HandleLogin).Methods("POST")
	legacy.HandleFunc("/refresh-token", a.HandleRefresh).Methods("GET")
	legacy.HandleFunc("/topscore", a.HandleTopScore).Methods("GET")
	legacy.HandleFunc("/averagepoint", a.HandleAveragePoint).Methods("GET")
	legacyAuth := legacy.NewRoute().Subrouter()
	legacyAuth.Use(a.Authenticate)
	legacyAuth.HandleFunc("/logout", a.HandleLogout).Methods("POST")
	legacyAuth.HandleFunc("/users", a.HandleListUsers).Methods("GET")
	legacyAuth.HandleFunc("/getprofile", a.HandleGetProfile).Methods("GET")
	legacyAuth.HandleFunc("/update", a.HandleUpdateProfile).Methods("PUT")
	legacyAuth.HandleFunc("/delete", a.HandleDeleteAccount).Methods("DELETE")
	legacyAuth.HandleFunc("/increment-point", a.HandleIncrementPoint).Methods("POST")

	return r
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(c.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	signer, err := NewTokenSigner(c.JwtSecret)
	if err != nil {
		logger.Fatal("signer init", zap.Error(err))
	}

	var db Store
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(c.SQLiteFile)
		if err != nil {
			logger.Fatal("sqlite init", zap.Error(err))
		}
		db = s
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			logger.Fatal("postgres config", zap.Error(err))
		}
		if err := ApplyMigrations("./migrations", dsn); err != nil {
			logger.Fatal("migrations", zap.Error(err))
		}
		p, err := NewPostgresDB(dsn)
		if err != nil {
			logger.Fatal("postgres init", zap.Error(err))
		}
		db = p
		logger.Info("connected to PostgreSQL")
	case "memory":
		logger.Warn("using in-memory database (not recommended for production)")
		db = NewMemoryDB()
	default:
		logger.Fatal("unsupported DB_ADAPTER", zap.String("adapter", c.DBAdapter))
	}

	var revocations RevocationStore
	var rdb *redis.Client
	switch c.RevocationAdapter {
	case "redis":
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis init", zap.Error(err))
		}
		revocations = NewRedisRevocations(rdb, "rvk")
		logger.Info("revocation denylist in Redis", zap.String("addr", c.RedisAddr))
	default:
		rs, ok := db.(RevocationStore)
		if !ok {
			logger.Fatal("db adapter does not support revocation storage", zap.String("adapter", c.DBAdapter))
		}
		revocations = rs
	}

	initMetrics()

	app := &App{Store: db, Revocations: revocations, Signer: signer, Log: logger, Validate: validator.New()}
	r := app.routes()

	// Best-effort denylist pruning. Lookups stay correct without it; this only
	// bounds storage growth.
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go app.prune(pruneCtx, c.PruneInterval)

	srv := &http.Server{Handler: r, Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		logger.Info("starting server", zap.String("port", c.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopPrune()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.Store.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("shutdown failed", zap.Error(err))
	}
	logger.Info("server exited properly")
}

func (a *App) prune(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Revocations.PurgeExpired(ctx, time.Now())
			if err != nil {
				a.Log.Warn("denylist prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				revocationsPruned.Add(float64(n))
				a.Log.Info("pruned expired denylist entries", zap.Int64("count", n))
			}
		}
	}
}
