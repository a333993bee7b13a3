package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CSRF トークン（ダブルサブミット方式）
const (
	CSRFField      = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"
	sessionKeyCSRF = "csrf_token"

	csrfTemplateKey = "csrfToken"
	errorTemplate   = "error.html"
)

// MessageCSRFInvalid はトークンが無い・一致しないフォーム送信に表示するメッセージです。
const MessageCSRFInvalid = "Your form has expired. Please reload the page and try again."

// CSRFToken はセッションの CSRF トークンを返します。無ければ発行して保存します。
func (m *SessionManager) CSRFToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return "", fmt.Errorf("save csrf token: %w", err)
	}
	return token, nil
}

// VerifyCSRF はフォームの csrf_token（または X-CSRF-Token ヘッダー）を検証するミドルウェアです。
func (m *SessionManager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, _ := session.Get(sessionKeyCSRF).(string)

		received := c.PostForm(CSRFField)
		if received == "" {
			received = c.GetHeader(CSRFHeader)
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.log.Warnw("rejected form without valid csrf token", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.HTML(http.StatusForbidden, errorTemplate, gin.H{
				"errorMessage": MessageCSRFInvalid,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
