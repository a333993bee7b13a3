package users

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewSQLiteStore(db), mock
}

func sampleUser() *User {
	return &User{
		Username:     "ash",
		Name:         "Ash Ketchum",
		Image:        "https://example.com/ash.png",
		Description:  "Gotta catch 'em all",
		PasswordHash: "$2a$10$hash",
	}
}

func TestSQLiteStore_Create(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs(sqlmock.AnyArg(), "ash", "Ash Ketchum", "https://example.com/ash.png", "Gotta catch 'em all", "$2a$10$hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	input := sampleUser()
	created, err := store.Create(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, "ash", created.Username)
	assert.Empty(t, input.ID, "input must not be mutated")
}

func TestSQLiteStore_CreateExecError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WillReturnError(errors.New("disk I/O error"))

	_, err := store.Create(context.Background(), sampleUser())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.NotErrorIs(t, err, ErrUsernameTaken)
}

func TestSQLiteStore_CreateValidationSkipsDB(t *testing.T) {
	store, _ := newMockStore(t)

	u := sampleUser()
	u.Name = "   "

	_, err := store.Create(context.Background(), u)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)
}

func TestSQLiteStore_FindByUsername(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name       string
		mockExpect func(sqlmock.Sqlmock)
		wantUser   bool
		wantErr    bool
	}{
		{
			name: "found",
			mockExpect: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "username", "name", "image", "description", "password_hash", "created_at"}).
					AddRow("id-1", "ash", "Ash Ketchum", "img", "desc", "hash", now)
				m.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
					WithArgs("ash").
					WillReturnRows(rows)
			},
			wantUser: true,
		},
		{
			name: "not found",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
					WithArgs("ash").
					WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "query error",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
					WithArgs("ash").
					WillReturnError(errors.New("db query failed"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.mockExpect(mock)

			u, err := store.FindByUsername(context.Background(), "ash")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "select user")
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			if !tt.wantUser {
				assert.Nil(t, u)
				return
			}
			require.NotNil(t, u)
			assert.Equal(t, "id-1", u.ID)
			assert.Equal(t, "hash", u.PasswordHash)
		})
	}
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLiteStore(db)
	ctx := context.Background()

	created, err := store.Create(ctx, sampleUser())
	require.NoError(t, err)

	byName, err := store.FindByUsername(ctx, "ash")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "Ash Ketchum", byName.Name)

	byID, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ash", byID.Username)

	_, err = store.Create(ctx, sampleUser())
	assert.ErrorIs(t, err, ErrUsernameTaken)

	missing, err := store.FindByUsername(ctx, "misty")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
