package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// SQLite の拡張エラーコード
const (
	sqliteConstraintCheck   = 275
	sqliteConstraintNotNull = 1299
	sqliteConstraintUnique  = 2067
)

const (
	insertUserSQL = `INSERT INTO users (id, username, name, image, description, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectUserColumns       = `SELECT id, username, name, image, description, password_hash, created_at FROM users`
	selectUserByUsernameSQL = selectUserColumns + ` WHERE username = ?`
	selectUserByIDSQL       = selectUserColumns + ` WHERE id = ?`
)

// SQLiteStore は users テーブルへのアクセスを提供します。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore は SQLiteStore を作成します。
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create は新しいユーザーを保存します。ID と作成日時はここで採番されます。
// 一意制約違反は ErrUsernameTaken、フィールド違反は *ValidationError を返します。
func (s *SQLiteStore) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is nil")
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	created := *user
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, insertUserSQL,
		created.ID,
		created.Username,
		created.Name,
		created.Image,
		created.Description,
		created.PasswordHash,
		created.CreatedAt,
	)
	if err != nil {
		return nil, mapInsertError(created.Username, err)
	}
	return &created, nil
}

// FindByUsername はユーザー名で検索します。見つからない場合は (nil, nil) を返します。
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.queryOne(ctx, selectUserByUsernameSQL, username)
	if err != nil {
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return user, nil
}

// FindByID は ID で検索します。見つからない場合は (nil, nil) を返します。
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*User, error) {
	user, err := s.queryOne(ctx, selectUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("select user by id %q: %w", id, err)
	}
	return user, nil
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Image,
		&u.Description,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func mapInsertError(username string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqliteConstraintUnique:
			return ErrUsernameTaken
		case sqliteConstraintCheck, sqliteConstraintNotNull:
			return &ValidationError{Message: sqliteErr.Error()}
		}
	}
	return fmt.Errorf("insert user %q: %w", username, err)
}
