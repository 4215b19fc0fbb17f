package modkit

import (
	"ghfinder/internal/modkit/httpkit"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Ports  any

	// Register attaches caller endpoints; a no-op unless WithRegister was given
	Register func(httpkit.Router)
}

// Build applies Option funcs to an internal buildCfg and returns a plain struct
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.register == nil {
		c.register = func(httpkit.Router) {}
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Ports:    c.ports,
		Register: c.register,
	}
}
