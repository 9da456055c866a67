package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки хеширования
var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrHashMismatch  = errors.New("password does not match hash")
)

// BcryptCost стоимость хеширования bcrypt.
// 12 даёт ~250ms на проверку, достаточно для API-ключей.
const BcryptCost = 12

// HashAPIKey хеширует API-ключ для хранения в конфигурации.
// Сам ключ нигде не сохраняется, только хеш.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyAPIKey проверяет API-ключ против хеша.
// Возвращает nil если ключ совпадает.
func VerifyAPIKey(hash, key string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrHashMismatch
		}
		return err
	}
	return nil
}

// CheckAPIKeyMatch проверяет совпадение без деталей ошибки
func CheckAPIKeyMatch(hash, key string) bool {
	return VerifyAPIKey(hash, key) == nil
}
