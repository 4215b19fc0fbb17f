// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const keyCaller ctxKey = "caller"

// WithRequestID sets the chi request id so chimw.GetReqID can retrieve it
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// WithCaller annotates context with the authenticated caller
func WithCaller(ctx context.Context, caller string) context.Context {
	if caller == "" {
		return ctx
	}
	return context.WithValue(ctx, keyCaller, caller)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// Caller returns the authenticated caller on the context if present
func Caller(ctx context.Context) string {
	v, _ := ctx.Value(keyCaller).(string)
	return v
}
