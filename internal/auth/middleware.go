package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 遷移先
const (
	LandingPath = "/"
	HomePath    = "/app/home"
	LoginPath   = "/login"
)

// RequireLoggedIn は未ログインのリクエストをログイン画面へリダイレクトします。
func RequireLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsLoggedOut(c) {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireLoggedOut はログイン済みのリクエストをホームへリダイレクトします。
// サインアップ・ログイン画面をログイン後に開けないようにするためのものです。
func RequireLoggedOut() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsLoggedIn(c) {
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
			return
		}
		c.Next()
	}
}
