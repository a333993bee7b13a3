package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/trainer-hub/internal/logger"
	"github.com/yourusername/trainer-hub/internal/users"
)

const (
	SessionCookieName    = "th_session"
	sessionKeyUserID     = "user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"

	contextStateKey = "auth.state"
)

const (
	defaultMaxSessionLifetime = 12 * time.Hour
	defaultIdleTimeout        = 30 * time.Minute
)

// State はリクエスト単位の認証状態です。グローバルには保持しません。
type State struct {
	User      *users.User
	InSession bool
	Anonymous bool
}

// UserFinder はセッションに保存した ID からユーザーを引き直すために使います。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// SessionOptions はセッションの寿命とクッキー属性の設定です。寿命のゼロ値は既定値になります。
type SessionOptions struct {
	MaxLifetime time.Duration
	IdleTimeout time.Duration
	Secure      bool // HTTPS でのみクッキーを送る（release モード）
}

// SessionManager はセッションの確立・破棄と、リクエストへの認証状態の反映を担います。
type SessionManager struct {
	users       UserFinder
	maxLifetime time.Duration
	idleTimeout time.Duration
	secure      bool
	now         func() time.Time
	log         *logger.Logger
}

// NewSessionManager は SessionManager を作成します。
func NewSessionManager(finder UserFinder, opts SessionOptions, log *logger.Logger) *SessionManager {
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = defaultMaxSessionLifetime
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SessionManager{
		users:       finder,
		maxLifetime: opts.MaxLifetime,
		idleTimeout: opts.IdleTimeout,
		secure:      opts.Secure,
		now:         time.Now,
		log:         log,
	}
}

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *SessionManager) MaxAgeSeconds() int {
	return int(m.maxLifetime.Seconds())
}

// CookieOptions はセッションクッキーの属性です。ストアの設定と Destroy の両方で使います。
func (m *SessionManager) CookieOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   m.MaxAgeSeconds(),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Establish は現在のセッションをユーザーに紐付けます。
// セッションにはユーザー ID のみを保存します。
func (m *SessionManager) Establish(c *gin.Context, user *users.User) error {
	if user == nil || user.ID == "" {
		return errors.New("cannot establish session without user id")
	}

	// ログイン前のトークンは使い回さない
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("generate csrf token: %w", err)
	}

	session := sessions.Default(c)
	now := m.now()
	session.Set(sessionKeyCSRF, token)
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	if err := session.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	setState(c, State{User: user, InSession: true, Anonymous: false})
	return nil
}

// Destroy はセッションを破棄します。失敗した場合、認証状態は変更しません。
func (m *SessionManager) Destroy(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	opts := m.CookieOptions()
	opts.MaxAge = -1
	session.Options(opts)
	if err := session.Save(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	setState(c, State{Anonymous: true})
	return nil
}

// Load はセッションからユーザーを復元し、リクエストの認証状態を設定するミドルウェアです。
// sessions.Sessions の後に登録してください。
func (m *SessionManager) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		setState(c, State{Anonymous: true})

		session := sessions.Default(c)
		userID, ok := session.Get(sessionKeyUserID).(string)
		if !ok || userID == "" {
			c.Next()
			return
		}

		now := m.now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if issuedAt.IsZero() || now.Sub(issuedAt) > m.maxLifetime {
			m.discard(session, "session expired", userID)
			c.Next()
			return
		}
		if lastActive.IsZero() || now.Sub(lastActive) > m.idleTimeout {
			m.discard(session, "session idle timeout", userID)
			c.Next()
			return
		}

		user, err := m.users.FindByID(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(fmt.Errorf("load session user: %w", err))
			c.Abort()
			return
		}
		if user == nil {
			m.discard(session, "session user no longer exists", userID)
			c.Next()
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		if err := session.Save(); err != nil {
			m.log.Warnw("failed to refresh session activity", "userID", userID, "err", err)
		}

		setState(c, State{User: user, InSession: true, Anonymous: false})
		c.Next()
	}
}

func (m *SessionManager) discard(session sessions.Session, reason, userID string) {
	m.log.Infow(reason, "userID", userID)
	session.Clear()
	if err := session.Save(); err != nil {
		m.log.Warnw("failed to clear session", "userID", userID, "err", err)
	}
}

// StateFrom はリクエストの認証状態を返します。未設定なら匿名です。
func StateFrom(c *gin.Context) State {
	if v, ok := c.Get(contextStateKey); ok {
		if state, ok := v.(State); ok {
			return state
		}
	}
	return State{Anonymous: true}
}

// CurrentUser はログイン中のユーザーを返します。
func CurrentUser(c *gin.Context) (*users.User, bool) {
	state := StateFrom(c)
	if !state.InSession || state.User == nil {
		return nil, false
	}
	return state.User, true
}

// IsLoggedIn はログイン中かどうかを返します。
func IsLoggedIn(c *gin.Context) bool {
	return StateFrom(c).InSession
}

// IsLoggedOut は未ログインかどうかを返します。
func IsLoggedOut(c *gin.Context) bool {
	return !IsLoggedIn(c)
}

func setState(c *gin.Context, state State) {
	c.Set(contextStateKey, state)
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
