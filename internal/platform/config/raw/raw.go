// Package raw reads environment variables before the logger exists, so the
// logger can configure itself from LOG_* without importing config
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf reads variables under a fixed name prefix such as "LOG_"
type Conf struct{ prefix string }

func New() Conf { return Conf{} }

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(c.prefix + key))
}

// Get returns the value, or def when unset or blank
func (c Conf) Get(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true and yes as true in any case; any other set value is false
func (c Conf) GetBool(key string, def bool) bool {
	v := strings.ToLower(c.lookup(key))
	switch v {
	case "":
		return def
	case "1", "true", "yes":
		return true
	}
	return false
}

// GetInt accepts only non-negative decimal values
func (c Conf) GetInt(key string, def int) int {
	v := c.lookup(key)
	if v == "" || strings.HasPrefix(v, "+") {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
