package auth

import "errors"

// Kind は検証系エラーの種別です。
type Kind string

const (
	KindMissingField       Kind = "MISSING_FIELD"
	KindWeakPassword       Kind = "WEAK_PASSWORD"
	KindDuplicateUsername  Kind = "DUPLICATE_USERNAME"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindValidation         Kind = "VALIDATION_ERROR"
)

// 画面に表示するメッセージ
const (
	MessageNameRequired        = "Please provide your name."
	MessageUsernameRequired    = "Please provide your username."
	MessageImageRequired       = "Please provide the link to an image."
	MessageDescriptionRequired = "What kind of trainer are you?"
	MessageWeakPassword        = "Your password needs to be at least 8 characters long."
	MessagePasswordTooLong     = "Your password must be at most 72 bytes long."
	MessageUsernameTaken       = "Username already taken."
	MessageInvalidCredentials  = "Wrong credentials."
)

// Error は利用者に返す検証エラーです。これ以外のエラーはすべて内部エラーとして扱います。
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsValidation は err が検証系エラー（400 相当）かどうかを返します。
func IsValidation(err error) bool {
	var authErr *Error
	return errors.As(err, &authErr)
}

func missingField(field, message string) *Error {
	return &Error{Kind: KindMissingField, Field: field, Message: message}
}

var (
	errWeakPassword       = &Error{Kind: KindWeakPassword, Field: "password", Message: MessageWeakPassword}
	errPasswordTooLong    = &Error{Kind: KindValidation, Field: "password", Message: MessagePasswordTooLong}
	errDuplicateUsername  = &Error{Kind: KindDuplicateUsername, Field: "username", Message: MessageUsernameTaken}
	errInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: MessageInvalidCredentials}
)
