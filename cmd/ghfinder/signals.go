package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"ghfinder/internal/platform/logger"
)

// interrupter turns SIGINT/SIGTERM into a cooperative stop flag. The first
// signal sets the flag and arms a hard deadline; a second signal exits at once.
// Both forced exits run save first
type interrupter struct {
	grace time.Duration
	save  func()
	exit  func(int)

	flag  atomic.Bool
	saved sync.Once
	mu    sync.Mutex
	timer *time.Timer
}

func newInterrupter(grace time.Duration, save func(), exit func(int)) *interrupter {
	if exit == nil {
		exit = os.Exit
	}
	return &interrupter{grace: grace, save: save, exit: exit}
}

// Interrupted reports whether a stop was requested
func (i *interrupter) Interrupted() bool { return i.flag.Load() }

// handle reacts to one received signal
func (i *interrupter) handle(sig os.Signal) {
	log := logger.Named("signal")
	if i.flag.CompareAndSwap(false, true) {
		log.Warn().Str("signal", sig.String()).Dur("grace", i.grace).
			Msg("interrupt received, finishing current repository. Press Ctrl+C again to force exit")
		i.mu.Lock()
		if i.grace > 0 {
			i.timer = time.AfterFunc(i.grace, func() {
				log.Error().Msg("graceful shutdown timed out")
				i.force(exitInterrupted)
			})
		}
		i.mu.Unlock()
		return
	}
	log.Error().Str("signal", sig.String()).Msg("second interrupt, forcing exit")
	i.force(exitError)
}

// force persists what it can, then exits with code
func (i *interrupter) force(code int) {
	if i.save != nil {
		i.saved.Do(i.save)
	}
	i.exit(code)
}

// stop disarms the hard deadline once the graceful path has finished
func (i *interrupter) stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.timer != nil {
		i.timer.Stop()
	}
}

// watch delivers process signals to handle until ctx ends
func (i *interrupter) watch(ctx context.Context) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				i.handle(sig)
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
		i.stop()
	}
}
