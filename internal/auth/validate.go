package auth

import "unicode/utf8"

// MinPasswordLength はパスワードの最小文字数です。
const MinPasswordLength = 8

// SignupInput はサインアップフォームの入力です。
type SignupInput struct {
	Name        string `form:"name"`
	Username    string `form:"username"`
	Image       string `form:"image"`
	Description string `form:"description"`
	Password    string `form:"password"`
}

// LoginInput はログインフォームの入力です。
type LoginInput struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Validate は必須項目とパスワード長を検証します。チェック順は固定です。
func (in SignupInput) Validate() error {
	switch {
	case in.Name == "":
		return missingField("name", MessageNameRequired)
	case in.Username == "":
		return missingField("username", MessageUsernameRequired)
	case in.Image == "":
		return missingField("image", MessageImageRequired)
	case in.Description == "":
		return missingField("description", MessageDescriptionRequired)
	}
	return checkPasswordLength(in.Password)
}

// Validate はユーザー名の有無とパスワード長を検証します。
// 短いパスワードは保存済みハッシュと一致し得ないため、検索前に弾きます。
func (in LoginInput) Validate() error {
	if in.Username == "" {
		return missingField("username", MessageUsernameRequired)
	}
	return checkPasswordLength(in.Password)
}

// redacted はフォーム再表示用にパスワードを消したコピーを返します。
func (in SignupInput) redacted() SignupInput {
	in.Password = ""
	return in
}

func checkPasswordLength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errWeakPassword
	}
	return nil
}
