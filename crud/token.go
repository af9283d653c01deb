package crud

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"hash"
)

// RememberTokenBytes is the byte size of generated remember tokens.
const RememberTokenBytes = 32

// HMAC wraps crypto/hmac to hash remember tokens before they're stored.
// Only the hash ever touches the database, the raw token lives in the
// client's cookie.
type HMAC struct {
	hmac hash.Hash
}

// newHMAC returns an HMAC using the given secret key.
func newHMAC(key string) HMAC {
	h := hmac.New(sha256.New, []byte(key))
	return HMAC{
		hmac: h,
	}
}

// Hash hashes the given input string using HMAC with the secret key
// provided when the HMAC object was created.
func (h HMAC) Hash(input string) string {
	h.hmac.Reset()
	h.hmac.Write([]byte(input))
	b := h.hmac.Sum(nil)
	return base64.URLEncoding.EncodeToString(b)
}

// randomBytes generates n random bytes, or returns an error if it fails.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// randomString generates a base64 url-encoded string of nBytes random bytes.
func randomString(nBytes int) (string, error) {
	b, err := randomBytes(nBytes)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MakeRememberToken generates a remember token of a predetermined byte size.
func MakeRememberToken() (string, error) {
	return randomString(RememberTokenBytes)
}
