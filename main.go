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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/otp"
	"storefront/internal/repository/memory"
	"storefront/internal/repository/mongostore"
	"storefront/internal/seed"
	"storefront/internal/service"
	"storefront/internal/token"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type repositories struct {
	users      service.UserRepository
	carts      service.CartRepository
	products   service.ProductStore
	categories service.CategoryStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	checks := map[string]handlers.Check{}

	repos, closeRepos, err := openRepositories(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeRepos()

	codes, closeCodes, err := openOTPStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeCodes()

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	services := handlers.Services{
		Auth: service.NewAuthService(repos.users, codes, tokens, service.AuthConfig{
			OTPTTL:      cfg.OTPTTL,
			MaxAttempts: cfg.OTPMaxAttempts,
			ExposeCode:  cfg.IsDevelopment(),
		}, log.Named("auth")),
		Catalog: service.NewCatalogService(repos.products, repos.categories, log.Named("catalog")),
		Cart:    service.NewCartService(repos.carts, repos.products, log.Named("cart")),
		Account: service.NewAccountService(repos.users, repos.products, log.Named("account")),
		Admin:   service.NewCatalogAdminService(repos.products, repos.categories, log.Named("admin")),
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log.Named("http")), middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(r, services, checks, log.Named("handlers"))

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		})(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepositories connects to MongoDB. Without MONGO_URI the development
// server runs on in-memory repositories, seeded from SEED_FILE when set.
func openRepositories(ctx context.Context, cfg config.Config, log *zap.Logger, checks map[string]handlers.Check) (repositories, func(), error) {
	if cfg.MongoURI == "" {
		if !cfg.IsDevelopment() {
			return repositories{}, nil, errors.New("MONGO_URI is required")
		}
		log.Warn("MONGO_URI not set, using in-memory repositories")
		repos, err := memoryRepositories(ctx, os.Getenv("SEED_FILE"), log)
		return repos, func() {}, err
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return repositories{}, nil, err
	}
	db := client.Database(cfg.DBName)
	log.Info("mongodb connected", zap.String("db", db.Name()))

	if err := database.EnsureIndexes(ctx, db, log.Named("indexes")); err != nil {
		log.Warn("index bootstrap incomplete", zap.Error(err))
	}
	checks["mongo"] = handlers.MongoCheck(db)

	closeFn := func() {
		disconnect(client, log)
	}
	return repositories{
		users:      mongostore.NewUserRepository(db),
		carts:      mongostore.NewCartRepository(db),
		products:   mongostore.NewProductRepository(db),
		categories: mongostore.NewCategoryRepository(db),
	}, closeFn, nil
}

func memoryRepositories(ctx context.Context, seedFile string, log *zap.Logger) (repositories, error) {
	users := memory.NewUserRepository()
	products := memory.NewProductRepository()
	categories := memory.NewCategoryRepository()

	if seedFile != "" {
		fixture, err := seed.LoadFile(seedFile)
		if err != nil {
			return repositories{}, err
		}
		cats, prods, err := fixture.Build(time.Now())
		if err != nil {
			return repositories{}, err
		}
		for _, c := range cats {
			categories.Put(c)
		}
		for _, p := range prods {
			products.Put(p)
		}
		for _, phone := range fixture.Admins {
			if _, err := service.GrantAdmin(ctx, users, phone); err != nil {
				return repositories{}, err
			}
		}
		log.Info("in-memory catalog seeded",
			zap.Int("categories", len(cats)),
			zap.Int("products", len(prods)),
			zap.Int("admins", len(fixture.Admins)),
		)
	}

	return repositories{
		users:      users,
		carts:      memory.NewCartRepository(),
		products:   products,
		categories: categories,
	}, nil
}

// openOTPStore uses Redis when REDIS_ADDR is set and an in-memory store with
// a background janitor otherwise.
func openOTPStore(ctx context.Context, cfg config.Config, log *zap.Logger, checks map[string]handlers.Check) (otp.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, keeping OTP codes in memory")
		store := otp.NewMemoryStore()
		go store.Run(ctx, sweepInterval)
		return store, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	return otp.NewRedisStore(client), func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", zap.Error(err))
		}
	}, nil
}

func disconnect(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("mongodb disconnect failed", zap.Error(err))
	}
}
