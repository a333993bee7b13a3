// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/trainer-hub/internal/auth"
	"github.com/yourusername/trainer-hub/internal/config"
	"github.com/yourusername/trainer-hub/internal/logger"
	"github.com/yourusername/trainer-hub/internal/users"
	"github.com/yourusername/trainer-hub/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.ErrorLevel).Fatalw("failed to load config", "err", err)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	// ユーザーストアの初期化
	db, err := users.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalw("failed to open user database", "path", cfg.DatabasePath, "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close user database", "err", cerr)
		}
	}()
	userStore := users.NewSQLiteStore(db)

	attempts, closeAttempts, err := setupAttemptStore(cfg, log)
	if err != nil {
		log.Fatalw("failed to set up login attempt store", "err", err)
	}
	defer closeAttempts()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	router, err := newRouter(cfg, log, userStore, attempts)
	if err != nil {
		log.Fatalw("failed to build router", "err", err)
	}

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting server", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("failed to start server", "err", err)
		}
	}()

	waitForShutdown(srv, log)
}

// newRouter はミドルウェアとルーティングを組み立てます。
func newRouter(cfg *config.Config, log *logger.Logger, userStore *users.SQLiteStore, attempts auth.AttemptStore) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(gin.Recovery(), log.GinMiddleware(), web.ErrorHandler(log))

	sessionManager := auth.NewSessionManager(userStore, auth.SessionOptions{
		MaxLifetime: cfg.SessionMaxLifetime(),
		IdleTimeout: cfg.SessionIdleTimeout(),
		Secure:      cfg.GinMode == gin.ReleaseMode,
	}, log)

	// セッションストアの設定（クッキー署名鍵は必須）
	secret := cfg.SessionSecret
	if secret == "" {
		log.Warnw("SESSION_SECRET is empty; using an insecure development key")
		secret = "trainer-hub-insecure-development-key"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessionManager.CookieOptions())
	router.Use(sessions.Sessions(auth.SessionCookieName, store))
	router.Use(sessionManager.Load())

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	// フォーム以外から送る場合は CSRF トークンをヘッダーで渡す
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, auth.CSRFHeader)
	router.Use(cors.New(corsConfig))

	service := auth.NewService(userStore, auth.NewPasswordHasher(cfg.BcryptCost))
	authHandler := auth.NewHandler(service, sessionManager, attempts, log)

	setupRoutes(router, authHandler)
	return router, nil
}

// setupRoutes は画面と認証周りの配線を行います。
func setupRoutes(router *gin.Engine, authHandler *auth.Handler) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)
	router.GET(auth.LandingPath, handleIndex)

	authHandler.RegisterRoutes(router)

	app := router.Group("/app", auth.RequireLoggedIn())
	{
		app.GET("/home", handleHome)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "trainer-hub",
		"version": "0.1.0",
	})
}

func handleIndex(c *gin.Context) {
	state := auth.StateFrom(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"inSession": state.InSession,
		"anonymous": state.Anonymous,
	})
}

func handleHome(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	c.HTML(http.StatusOK, "home.html", gin.H{
		"user": user,
	})
}

// waitForShutdown は SIGINT/SIGTERM を待ってサーバーを停止します。
func waitForShutdown(srv *http.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
