package repokit

import (
	"context"
	"fmt"
	"time"
)

// DefaultPingTimeout bounds Ping when ctx has no deadline
const DefaultPingTimeout = 5 * time.Second

// Ping checks that a dependency answers. A nil dependency is an error
func Ping(ctx context.Context, name string, p interface{ Ping(context.Context) error }) error {
	if p == nil {
		return fmt.Errorf("%s: nil dependency", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}
