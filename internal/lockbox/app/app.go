package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/jedrzej-grabski/lock-box/internal/lockbox/http"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/objstore"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/service"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store"
	"github.com/jedrzej-grabski/lock-box/internal/lockbox/store/drivers/sqlite"
	"github.com/jedrzej-grabski/lock-box/pkg/cryptox"
	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
	"github.com/jedrzej-grabski/lock-box/pkg/slogx"
)

const (
	// BuildVersion is intended to be overridden at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the lockbox service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec
	blobs *objstore.FS

	tokenService        *service.TokenService
	userService         *service.UserService
	roomService         *service.RoomService
	inviteService       *service.InviteService
	documentService     *service.DocumentService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lockbox",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	codec, err := initCodec(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	if err := app.initBlobStore(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("lockbox starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down lockbox...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("lockbox stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initBlobStore() error {
	secret := []byte(app.cfg.BlobSigningSecret)
	if len(secret) == 0 {
		// Dev fallback: random per-process secret. Presigned URLs die with
		// the process, same trade-off as the ephemeral signing key.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		secret = []byte(hex.EncodeToString(buf))
		app.logger.Warn("LOCKBOX_BLOB_SIGNING_SECRET not set; presigned URLs will not survive restarts")
	}

	blobs, err := objstore.NewFS(app.cfg.BlobDir, app.cfg.BlobBaseURL, secret)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	app.blobs = blobs
	return nil
}

func (app *Application) initServices() {
	audit := &service.Recorder{Store: app.db}
	access := &service.AccessService{Store: app.db}

	app.tokenService = &service.TokenService{
		Codec:      app.codec,
		Store:      app.db,
		Audit:      audit,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}
	app.userService = &service.UserService{Store: app.db, Audit: audit}
	app.roomService = &service.RoomService{Store: app.db, Access: access, Audit: audit}
	app.inviteService = &service.InviteService{
		Store:      app.db,
		Access:     access,
		Audit:      audit,
		HMACSecret: app.inviteSecret(),
	}
	app.documentService = &service.DocumentService{
		Store:  app.db,
		Access: access,
		Blobs:  app.blobs,
		Audit:  audit,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) inviteSecret() []byte {
	if app.cfg.InviteHMACSecret != "" {
		return []byte(app.cfg.InviteHMACSecret)
	}
	// Matches the blob store's dev fallback semantics: invites minted by a
	// previous process become unredeemable.
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return buf
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.RoomService = app.roomService
	router.InviteService = app.inviteService
	router.DocumentService = app.documentService
	router.Blobs = app.blobs
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
