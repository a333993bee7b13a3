package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/trainer-hub/internal/logger"
)

// テンプレート名
const (
	signupTemplate = "signup.html"
	loginTemplate  = "login.html"
	logoutTemplate = "logout.html"
)

// MessageTooManyAttempts はロック中のログインに表示するメッセージです。
const MessageTooManyAttempts = "Too many login attempts. Please try again later."

// Handler は /signup, /login, /logout のハンドラーです。
type Handler struct {
	service  *Service
	sessions *SessionManager
	attempts AttemptStore
	log      *logger.Logger
}

// NewHandler は Handler を作成します。attempts が nil の場合は既定のメモリ実装を使います。
func NewHandler(service *Service, sessions *SessionManager, attempts AttemptStore, log *logger.Logger) *Handler {
	if attempts == nil {
		attempts = NewMemoryAttemptStore(DefaultAttemptPolicy)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service:  service,
		sessions: sessions,
		attempts: attempts,
		log:      log,
	}
}

// RegisterRoutes は認証系のルートを登録します。
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/signup", RequireLoggedOut(), h.SignupForm)
	r.POST("/signup", RequireLoggedOut(), h.sessions.VerifyCSRF(), h.Signup)
	r.GET("/login", RequireLoggedOut(), h.LoginForm)
	r.POST("/login", RequireLoggedOut(), h.sessions.VerifyCSRF(), h.Login)
	r.GET("/logout", RequireLoggedIn(), h.Logout)
}

// SignupForm は GET /signup のハンドラーです。
func (h *Handler) SignupForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, signupTemplate, gin.H{})
}

// Signup は POST /signup のハンドラーです。
func (h *Handler) Signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, signupTemplate, gin.H{
			"errorMessage": "Invalid form submission.",
		})
		return
	}

	user, err := h.service.Signup(c.Request.Context(), in)
	if err != nil {
		var authErr *Error
		if errors.As(err, &authErr) {
			h.renderForm(c, http.StatusBadRequest, signupTemplate, gin.H{
				"errorMessage": authErr.Message,
				"form":         in.redacted(),
			})
			return
		}
		h.log.Errorw("signup failed", "username", in.Username, "err", err)
		h.renderForm(c, http.StatusInternalServerError, signupTemplate, gin.H{
			"errorMessage": err.Error(),
			"form":         in.redacted(),
		})
		return
	}

	if err := h.sessions.Establish(c, user); err != nil {
		h.log.Errorw("failed to establish session after signup", "userID", user.ID, "err", err)
		h.renderForm(c, http.StatusInternalServerError, signupTemplate, gin.H{
			"errorMessage": err.Error(),
		})
		return
	}

	h.log.Infow("user signed up", "userID", user.ID, "username", user.Username)
	c.Redirect(http.StatusFound, HomePath)
}

// LoginForm は GET /login のハンドラーです。
func (h *Handler) LoginForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, loginTemplate, gin.H{})
}

// Login は POST /login のハンドラーです。
// 想定外のエラーは c.Error で共通エラーハンドラーに渡します。
func (h *Handler) Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, loginTemplate, gin.H{
			"errorMessage": "Invalid form submission.",
		})
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	retryAfter, err := h.attempts.LockedFor(ctx, ip)
	if err != nil {
		// 制限の確認に失敗してもログイン自体は止めない
		h.log.Warnw("failed to check login lock", "ip", ip, "err", err)
	}
	if retryAfter > 0 {
		// Retry-After は秒数で返す
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		h.renderForm(c, http.StatusTooManyRequests, loginTemplate, gin.H{
			"errorMessage": MessageTooManyAttempts,
			"username":     in.Username,
		})
		return
	}

	user, err := h.service.Login(ctx, in)
	if err != nil {
		var authErr *Error
		if !errors.As(err, &authErr) {
			_ = c.Error(err)
			return
		}
		data := gin.H{
			"errorMessage": authErr.Message,
			"username":     in.Username,
		}
		if authErr.Kind == KindInvalidCredentials {
			remaining, recErr := h.attempts.RecordFailure(ctx, ip)
			if recErr != nil {
				h.log.Warnw("failed to record login failure", "ip", ip, "err", recErr)
			} else if remaining > 0 {
				data["remainingAttempts"] = remaining
			}
		}
		h.renderForm(c, http.StatusBadRequest, loginTemplate, data)
		return
	}

	if err := h.attempts.Reset(ctx, ip); err != nil {
		h.log.Warnw("failed to reset login attempts", "ip", ip, "err", err)
	}

	if err := h.sessions.Establish(c, user); err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Infow("user logged in", "userID", user.ID)
	c.Redirect(http.StatusFound, HomePath)
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	userID := ""
	if user, ok := CurrentUser(c); ok {
		userID = user.ID
	}

	if err := h.sessions.Destroy(c); err != nil {
		h.log.Errorw("logout failed", "userID", userID, "err", err)
		c.HTML(http.StatusInternalServerError, logoutTemplate, gin.H{
			"errorMessage": err.Error(),
		})
		return
	}

	h.log.Infow("user logged out", "userID", userID)
	c.Redirect(http.StatusFound, LandingPath)
}

// renderForm はフォーム画面に CSRF トークンを埋め込んで描画します。
func (h *Handler) renderForm(c *gin.Context, status int, name string, data gin.H) {
	token, err := h.sessions.CSRFToken(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	data[csrfTemplateKey] = token
	c.HTML(status, name, data)
}
