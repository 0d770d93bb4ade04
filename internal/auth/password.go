package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt учитывает только первые 72 байта
const maxPasswordBytes = 72

// HashPassword хеширует пароль bcrypt'ом.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		password = password[:maxPasswordBytes]
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword сверяет пароль с хешем.
func VerifyPassword(password, hash string) bool {
	if len(password) > maxPasswordBytes {
		password = password[:maxPasswordBytes]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
