package module

import (
	"time"

	"ghfinder/internal/platform/config"
	perr "ghfinder/internal/platform/errors"
	"ghfinder/internal/platform/net/http/bind"
)

// Options controls the dashboard HTTP surface
type Options struct {
	Addr        string        `json:"addr" validate:"required"`
	CORSOrigins []string      `json:"cors_origins" validate:"dive,required"`
	Token       string        `json:"-"`
	Slow        time.Duration `json:"slow" validate:"gte=0"`
	Timeout     time.Duration `json:"timeout" validate:"gte=0"`
	MaxInFlight int           `json:"max_in_flight" validate:"gte=0"`
	Metrics     bool          `json:"metrics"`
	Pprof       bool          `json:"pprof"`
}

// FromConfig reads options using the GHFINDER_HTTP_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("GHFINDER_HTTP_")
	return Options{
		Addr:        c.MayString("ADDR", ":8080"),
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Token:       c.MayString("TOKEN", ""),
		Slow:        c.MayDuration("SLOW", 500*time.Millisecond),
		Timeout:     c.MayDuration("TIMEOUT", 30*time.Second),
		MaxInFlight: c.MayInt("MAX_INFLIGHT", 64),
		Metrics:     c.MayBool("METRICS", true),
		Pprof:       c.MayBool("PPROF", false),
	}
}

// WithAddr returns o listening on addr when addr is set
func (o Options) WithAddr(addr string) Options {
	if addr != "" {
		o.Addr = addr
	}
	return o
}

// Validate checks option bounds
func (o Options) Validate() error {
	if err := bind.Get().Validator.Struct(o); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
	}
	return nil
}
