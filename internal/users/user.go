// Package users はトレーナー（ユーザー）レコードの永続化を提供します。
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrUsernameTaken はユーザー名の一意制約に違反したことを表します。
var ErrUsernameTaken = errors.New("username already exists")

const (
	maxUsernameLength    = 32
	maxNameLength        = 64
	maxDescriptionLength = 500
)

// User はトレーナーのアカウント情報です。生パスワードは保持しません。
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Description  string    `json:"description"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidationError はストア側のフィールド検証エラーです。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "user validation failed: " + e.Message
	}
	return fmt.Sprintf("user validation failed: %s: %s", e.Field, e.Message)
}

// Validate は保存前のフィールド検証を行います。
func (u *User) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"username", u.Username},
		{"name", u.Name},
		{"image", u.Image},
		{"description", u.Description},
		{"password", u.PasswordHash},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: fmt.Sprintf("Path `%s` is required.", r.field)}
		}
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"username", u.Username, maxUsernameLength},
		{"name", u.Name, maxNameLength},
		{"description", u.Description, maxDescriptionLength},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return &ValidationError{
				Field:   l.field,
				Message: fmt.Sprintf("Path `%s` is longer than the maximum allowed length (%d).", l.field, l.max),
			}
		}
	}
	return nil
}
