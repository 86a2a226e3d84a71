// Package oauth implements RFC 5849 (OAuth 1.0) request signing: the
// percent-encoding and HMAC-SHA1 primitives, parameter canonicalization,
// and Authorization header construction. Everything here is pure; state
// (tokens, handshakes) lives in the twitter package.
package oauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEncoding is returned when a parameter key or value is not
// valid UTF-8. Signing such input would produce a signature the server
// can never reproduce, so it is rejected up front.
var ErrInvalidEncoding = errors.New("parameter is not valid UTF-8")

// PercentEncode encodes s per RFC 3986 section 2.1. Only the unreserved
// set [A-Za-z0-9-._~] passes through; every other byte becomes %XX with
// uppercase hex digits. This is deliberately not the form-urlencoded
// variant: encoding a space as "+" instead of "%20" silently breaks
// signature verification on the server.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(fmt.Sprintf("%%%02X", c))
	}

	return b.String()
}

// PercentDecode reverses PercentEncode. It rejects truncated or
// non-hex escape sequences.
func PercentDecode(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}

		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated percent escape at offset %d", i)
		}

		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid percent escape %q at offset %d", s[i:i+3], i)
		}

		b.WriteByte(hi<<4 | lo)
		i += 2
	}

	return b.String(), nil
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}

	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}

	return 0, false
}

// hmacSHA1 computes the Base64-encoded HMAC-SHA1 of message under key,
// the only signature method this package supports.
func hmacSHA1(key, message string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
