// Package web は画面テンプレートと共通エラーハンドラーを提供します。
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/trainer-hub/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrorTemplate は共通エラーページのテンプレート名です。
const ErrorTemplate = "error.html"

// Templates は埋め込みテンプレートを読み込みます。
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// ErrorHandler は c.Error で渡された未処理のエラーを 500 ページとして描画します。
// 既にレスポンスを書き込んでいる場合はログ出力のみ行います。
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		log.Errorw("unhandled request error", "path", c.Request.URL.Path, "err", err.Err)

		if c.Writer.Written() {
			return
		}
		c.HTML(http.StatusInternalServerError, ErrorTemplate, gin.H{
			"errorMessage": err.Error(),
		})
	}
}
