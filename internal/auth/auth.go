// Package auth provides the source endpoint's credential check.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CheckSourcePassword reports whether password (the "pass" half of a
// decoded "user:pass" Basic-auth payload) matches the configured source
// password. The username is intentionally ignored, matching the original
// handshake's password-only check. For inputs of equal length the
// comparison takes constant time regardless of content; inputs of
// different lengths are rejected immediately, so length is not hidden.
func CheckSourcePassword(password, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(configured)) == 1
}

// DecodeBasicAuth parses the value of an `Authorization: Basic <b64>`
// header into its username and password. ok is false if the header is
// missing the "Basic " prefix, is not valid base64, or does not contain a
// colon separator.
func DecodeBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// MaskForLog returns a bcrypt hash of password suitable for inclusion in
// startup diagnostics (e.g. "confirming the configured password is
// non-default") without ever logging the password itself in recoverable
// form. Returns an empty string if hashing fails (bcrypt only rejects
// inputs longer than 72 bytes).
func MaskForLog(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ""
	}
	return string(hash)
}
