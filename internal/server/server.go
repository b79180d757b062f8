package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	mwecho "github.com/labstack/echo/v4/middleware"
	mwsvc "supasidebar.com/licserver/internal/middleware"

	"supasidebar.com/licserver/internal/activation"
	"supasidebar.com/licserver/internal/backup"
	"supasidebar.com/licserver/internal/billing"
	"supasidebar.com/licserver/internal/cache"
	"supasidebar.com/licserver/internal/config"
	"supasidebar.com/licserver/internal/demodata"
	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/notify"
	"supasidebar.com/licserver/internal/product"
	"supasidebar.com/licserver/internal/sqlite"
	"supasidebar.com/licserver/internal/webhook"

	adminhttp "supasidebar.com/licserver/internal/http/admin"
	clienthttp "supasidebar.com/licserver/internal/http/client"
	webhookhttp "supasidebar.com/licserver/internal/http/webhooks"
)

// requestTimestampWindow is how far a desktop-app request timestamp may
// drift from server time before the request is rejected as a replay.
const requestTimestampWindow = 5 * time.Minute

type Server struct {
	Echo *echo.Echo
	HTTP *http.Server
	DB   *sqlx.DB
}

func Build(cfg *config.Config) (*Server, error) {
	//
	// Validate required secrets
	//
	if os.Getenv("ADMIN_API_KEY") == "" {
		return nil, errors.New("ADMIN_API_KEY environment variable is required")
	}
	if cfg.HardwareSecret == "" {
		return nil, errors.New("HARDWARE_SECRET environment variable is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("WEBHOOK_SECRET environment variable is required")
	}

	//
	// Database
	//
	isNewDB := false
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		isNewDB = true
		log.Printf("Creating database '%s' (from %s setting)", cfg.DBPath, cfg.DBPathSource)
	} else {
		log.Printf("Opening database '%s' (from %s setting)", cfg.DBPath, cfg.DBPathSource)
	}
	db, err := sqlx.Connect("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// WAL mode is only required once after creating the database, but
	// doesn't hurt to set it each time
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, err
	}

	// Foreign key support is required each time the database is open and
	// is required by the program for cascade deletes
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		return nil, err
	}

	// Verify foreign keys are supported and enabled
	var fkEnabled int
	if err := db.QueryRow(`PRAGMA foreign_keys;`).Scan(&fkEnabled); err != nil {
		return nil, errors.New("SQLite foreign key support check failed: " + err.Error())
	}
	if fkEnabled != 1 {
		return nil, errors.New("SQLite foreign keys not supported (requires SQLite 3.6.19+ compiled without SQLITE_OMIT_FOREIGN_KEY)")
	}

	if err := sqlite.RunMigrations(db.DB); err != nil {
		return nil, err
	}

	// Load demo data if requested and database is new
	if cfg.DemoMode && isNewDB {
		if err := demodata.Load(db.DB); err != nil {
			return nil, errors.New("failed to load demo data: " + err.Error())
		}
		log.Print("Demo data loaded")
	}

	//
	// Reconciliation cache: Redis when configured, in-process otherwise
	//
	var reconcileCache cache.Cache
	if cfg.RedisAddr != "" {
		reconcileCache = cache.NewRedis(cfg.RedisAddr)
		log.Printf("Using Redis cache at %s", cfg.RedisAddr)
	} else {
		reconcileCache = cache.NewMemory()
	}

	//
	// Domain services
	//
	licenseSvc := license.NewService(db)
	deviceSvc := device.NewService(db)
	productSvc := product.NewService(db)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.EmailAPIKey != "" {
		notifier = notify.NewClient(cfg.EmailBaseURL, cfg.EmailAPIKey)
	}

	billingClient := billing.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	var reconciler activation.Reconciler = activation.NopReconciler{}
	if cfg.ProviderAPIKey != "" {
		reconciler = billing.NewReconciler(billingClient, licenseSvc, reconcileCache, cfg.ReconcileCacheTTL)
	} else {
		log.Print("No provider API key configured; subscription reconciliation disabled")
	}

	activationSvc := activation.NewService(
		cfg.HardwareSecret,
		licenseSvc,
		deviceSvc,
		reconciler,
		notifier,
	)

	webhookSvc := webhook.NewService(
		db,
		cfg.WebhookSecret,
		licenseSvc,
		deviceSvc,
		productSvc,
		notifier,
	)

	backupSvc := backup.NewService(db, cfg.DBPath)

	//
	// Handlers
	//
	clientHandler := clienthttp.NewHandler(activationSvc)
	webhookHandler := webhookhttp.NewHandler(webhookSvc)

	adminSvc := adminhttp.NewService(
		licenseSvc,
		deviceSvc,
		productSvc,
		webhookSvc,
		backupSvc,
		billingClient,
	)
	adminHandler := adminhttp.NewHandler(adminSvc)

	//
	// Echo
	//
	e := echo.New()
	e.HideBanner = true

	// Health endpoints
	e.GET("/livez", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.GET("/readyz", func(c echo.Context) error {
		if err := db.Ping(); err != nil {
			return c.String(http.StatusServiceUnavailable, "DB not ready")
		}
		return c.String(http.StatusOK, "Ready")
	})

	// Middleware
	e.Use(mwecho.Logger())
	e.Use(mwecho.Recover())

	// Desktop client API
	clientGroup := e.Group("/api/v1")
	clienthttp.RegisterRoutes(clientGroup, clientHandler, mwsvc.RequestTimestamp(requestTimestampWindow))

	// Payment provider webhooks
	webhookGroup := e.Group("/api/webhooks")
	webhookhttp.RegisterRoutes(webhookGroup, webhookHandler)

	// Admin API
	adminGroup := e.Group("/api/admin")
	adminGroup.Use(mwsvc.AdminAPIKeyAuth())
	adminhttp.RegisterRoutes(adminGroup, adminHandler)

	//
	// HTTP server
	//
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		Echo: e,
		HTTP: srv,
		DB:   db,
	}, nil
}
