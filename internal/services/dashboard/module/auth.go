package module

import (
	"crypto/subtle"
	"errors"

	"ghfinder/internal/modkit/httpkit"
)

// tokenPort accepts requests carrying the one shared bearer token
func tokenPort(token string) *httpkit.Port {
	return httpkit.NewPortFunc(func(raw string) (string, error) {
		if subtle.ConstantTimeCompare([]byte(raw), []byte(token)) != 1 {
			return "", errors.New("token mismatch")
		}
		return "dashboard", nil
	})
}
