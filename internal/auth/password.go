package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost は bcrypt のコスト係数の既定値です。
const DefaultCost = 10

// bcrypt が扱えるパスワードの最大バイト数
const maxPasswordBytes = 72

// PasswordHasher は bcrypt によるハッシュ化と照合を行います。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher はコスト係数を指定して PasswordHasher を作成します。
// 範囲外の値は DefaultCost に置き換えます。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash はランダムなソルト付きのハッシュを生成します。
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", bcrypt.ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify はパスワードがハッシュと一致するかを返します。
// 不一致は (false, nil)、ハッシュ破損などは error を返します。
func (h *PasswordHasher) Verify(hash, password string) (bool, error) {
	if len(password) > maxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
