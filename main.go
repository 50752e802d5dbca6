package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"caballos/config"
	"caballos/db"
	"caballos/gallery"
	"caballos/handlers"
	"caballos/logging"
	"caballos/models"
	"caballos/processing"
	"caballos/storage"
	"caballos/utils"
	"caballos/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	sessionCookieName     = "token"
	sessionExpirationTime = 365 * 86400 // 1 year
	shutdownTimeout       = 15 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "caballos",
	Short: "Hablando de Caballos community server",
	// Plain "caballos" serves
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server with its background workers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup opens the database and object storage, shared by every command
func setup() error {
	logging.Init(config.DEBUG_MODE)
	db.Init()
	if err := models.Init(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := processing.Init(); err != nil {
		return fmt.Errorf("migrate processing: %w", err)
	}
	if err := models.BootstrapPrivileged(config.PrivilegedEmails()); err != nil {
		return fmt.Errorf("bootstrap privileged users: %w", err)
	}
	return storage.Init()
}

func newRouter() *gin.Engine {
	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware)
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware(logging.L))
	}
	origins := []string{"*"}
	if config.PUBLIC_BASE_URL != "" {
		origins = []string{config.PUBLIC_BASE_URL}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: config.PUBLIC_BASE_URL != "",
		MaxAge:           30 * 24 * time.Hour,
	}))

	sessionStore := gormsessions.NewStore(db.Instance, true, []byte(config.SESSION_KEY))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: sessionExpirationTime, HttpOnly: true, Secure: config.TLS_DOMAINS != ""})
	router.Use(sessions.Sessions(sessionCookieName, sessionStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/files/", "/api/admin/live", "/metrics"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, pages override that

	handlers.Register(router)
	web.Register(router)
	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.GetDefaultStorage()
	go processing.StartProcessing(ctx, store)
	gallery.StartSweeper(ctx, store, config.ORPHAN_SWEEP_AFTER)
	stopFeed := handlers.StartLiveFeed()
	defer stopFeed()

	router := newRouter()
	if config.TLS_DOMAINS != "" {
		logging.L.Infow("serving with autotls", "domains", config.TLS_DOMAINS)
		return autotls.RunWithContext(ctx, router, strings.Split(config.TLS_DOMAINS, ",")...)
	}

	srv := &http.Server{
		Addr:              config.BIND_ADDRESS,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logging.L.Infow("serving", "address", config.BIND_ADDRESS)
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.L.Info("server stopped")
	return nil
}
