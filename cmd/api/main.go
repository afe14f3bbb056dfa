package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/config"
	"github.com/georgemunganga/markethub-backend/internal/httpx"
	"github.com/georgemunganga/markethub-backend/internal/modules/access"
	"github.com/georgemunganga/markethub-backend/internal/modules/auth"
	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/modules/order"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
	"github.com/georgemunganga/markethub-backend/internal/platform/metrics"
	"github.com/georgemunganga/markethub-backend/internal/storage/memory"
)

// repositories is the storage backend selected by STORAGE_DRIVER.
type repositories struct {
	users     user.Repository
	stores    store.Repository
	members   store.MemberRepository
	grants    store.GrantRepository
	products  product.Repository
	inventory inventory.Repository
	carts     cart.Repository
	orders    order.Repository
	tx        database.TxManager
	db        *sql.DB
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "markethub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("markethub-api", cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System()
	repos, err := openStorage(ctx, cfg, clk)
	if err != nil {
		return err
	}
	if repos.db != nil {
		defer repos.db.Close()
		logger.Info("database_connected", zap.Int("max_open_conns", cfg.DBMaxOpenConns))
	} else {
		logger.Warn("using in-memory storage; data is lost on exit")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// ── Identity ────────────────────────────────────────────
	userService := user.NewService(repos.users)
	authService := auth.NewService(repos.users, cfg.JWTSecret, cfg.JWTTTL, clk)

	// ── Authorization ───────────────────────────────────────
	resolver := access.NewResolver(repos.stores, repos.members, repos.grants, repos.users, clk, m)
	grantManager := access.NewGrantManager(resolver, repos.stores, repos.grants, repos.users, repos.tx, clk, m)
	storeService := store.NewService(repos.stores, repos.members, repos.users, resolver, repos.tx)

	// ── Catalog & Cart ──────────────────────────────────────
	productService := product.NewService(repos.products, resolver, repos.tx)
	ledger := inventory.NewLedger(repos.inventory, repos.tx, m)
	aggregator := cart.NewAggregator(repos.carts)
	cartService := cart.NewService(repos.carts, aggregator, repos.products, repos.stores, resolver, repos.tx)

	// ── Settlement ──────────────────────────────────────────
	orchestrator := order.NewOrchestrator(order.OrchestratorConfig{
		Aggregator:   aggregator,
		Carts:        repos.carts,
		Stores:       repos.stores,
		Authorizer:   resolver,
		Ledger:       ledger,
		Orders:       repos.orders,
		Factory:      order.NewFactory(clk),
		Pricing:      order.RateCalculator{TaxRate: cfg.TaxRate, FlatShipping: cfg.FlatShipping},
		Tx:           repos.tx,
		StoreTimeout: cfg.CheckoutStoreTimeout,
		Metrics:      m,
	})
	orderService := order.NewService(repos.orders, resolver, ledger, repos.tx)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpx.RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	userHandler := user.NewHandler(userService)
	userHandler.RegisterPublicRoutes(router)
	auth.NewHandler(authService).RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authService))
		userHandler.RegisterRoutes(r)
		store.NewHandler(storeService).RegisterRoutes(r)
		access.NewHandler(resolver, grantManager).RegisterRoutes(r)
		product.NewHandler(productService).RegisterRoutes(r)
		cart.NewHandler(cartService).RegisterRoutes(r)
		order.NewHandler(orderService, orchestrator).RegisterRoutes(r)
	})

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg config.Config, clk clock.Clock) (*repositories, error) {
	if cfg.StorageDriver == config.DriverMemory {
		mem := memory.New(clk)
		return &repositories{
			users: mem, stores: mem, members: mem, grants: mem, products: mem,
			inventory: mem, carts: mem, orders: mem, tx: mem,
		}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:     user.NewPostgresRepository(db),
		stores:    store.NewPostgresRepository(db),
		members:   store.NewMemberPostgresRepository(db),
		grants:    store.NewGrantPostgresRepository(db),
		products:  product.NewPostgresRepository(db),
		inventory: inventory.NewPostgresRepository(db),
		carts:     cart.NewPostgresRepository(db),
		orders:    order.NewPostgresRepository(db),
		tx: database.NewTxManager(db, database.TxOptions{
			Isolation:   sql.LevelSerializable,
			LockTimeout: cfg.DBLockTimeout,
			MaxRetries:  cfg.TxMaxRetries,
		}),
		db: db,
	}, nil
}
