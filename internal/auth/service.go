// Package auth はサインアップ・ログイン・ログアウトとセッション管理を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/trainer-hub/internal/users"
)

// UserStore はユーザーレコードの保存先です。
// Find 系は見つからない場合 (nil, nil) を返します。
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
	Create(ctx context.Context, user *users.User) (*users.User, error)
}

// Service は資格情報の検証とユーザー作成を行います。
type Service struct {
	store  UserStore
	hasher *PasswordHasher
}

// NewService は Service を作成します。
func NewService(store UserStore, hasher *PasswordHasher) *Service {
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultCost)
	}
	return &Service{store: store, hasher: hasher}
}

// Signup は入力を検証し、新しいユーザーを作成します。
// 処理順: 入力検証 → 重複チェック → ハッシュ化 → 作成。どこかで失敗したら以降は実行しません。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*users.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, errDuplicateUsername
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, errPasswordTooLong
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.Create(ctx, &users.User{
		Username:     in.Username,
		Name:         in.Name,
		Image:        in.Image,
		Description:  in.Description,
		PasswordHash: hash,
	})
	if err != nil {
		// 事前チェック後に別リクエストが同じユーザー名を作成した場合もここに来る
		if errors.Is(err, users.ErrUsernameTaken) {
			return nil, errDuplicateUsername
		}
		var vErr *users.ValidationError
		if errors.As(err, &vErr) {
			return nil, &Error{Kind: KindValidation, Field: vErr.Field, Message: vErr.Message}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login は資格情報を照合し、一致したユーザーを返します。
// ユーザーが存在しない場合とパスワード不一致は同じエラーになります。
func (s *Service) Login(ctx context.Context, in LoginInput) (*users.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, errInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.PasswordHash, in.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	return user, nil
}
