package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Alphabets used when composing generated passwords. Every generated password
// contains at least one character from each class.
const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"
)

// GeneratedPasswordLength is the fixed size of operator-issued temporary passwords.
const GeneratedPasswordLength = 12

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token seed. Tokens are
// persisted only in this form so database access alone cannot leak a usable
// secret.
func HashToken(seed string) string {
	digest := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(digest[:])
}

// GeneratePassword produces a temporary password that contains at least one
// uppercase letter, one lowercase letter, one digit, and one special
// character. The remaining positions are drawn uniformly from the combined
// alphabet and the result is shuffled so the guaranteed characters are not
// positionally predictable.
func GeneratePassword() (string, error) {
	combined := upperChars + lowerChars + digitChars + specialChars

	chars := make([]byte, 0, GeneratedPasswordLength)
	for _, class := range []string{upperChars, lowerChars, digitChars, specialChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	for len(chars) < GeneratedPasswordLength {
		c, err := randomChar(combined)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates over crypto/rand.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func randomChar(alphabet string) (byte, error) {
	if alphabet == "" {
		return 0, errors.New("crypto: empty alphabet")
	}
	idx, err := randomInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[idx], nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
