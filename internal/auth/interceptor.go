// Package auth models the host ledger's require_auth primitive: every
// mutating custody/operator call needs the caller to have authorized it for
// a specific address, which on a real host is a signed transaction
// envelope; here it is a caller identity threaded through context.Context.
package auth

import (
	"context"
	"fmt"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"

	"github.com/google/uuid"
)

type callerKey struct{}

type requestIDKey struct{}

// WithCaller attaches the authorized caller address to ctx, standing in for
// a host having already verified the calling account's signature.
func WithCaller(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, callerKey{}, address)
}

// CallerFromContext returns the authorized caller address, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(callerKey{}).(string)
	return addr, ok
}

// WithRequestID stamps ctx with a fresh request id, used to correlate log
// lines across one operator call the way the teacher's interceptor
// correlated gRPC requests.
func WithRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestIDKey{}, uuid.New().String())
}

// RequestIDFromContext extracts the request id stamped by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}

// Authorizer checks that ctx carries authorization for address, the Go
// stand-in for Soroban's `address.require_auth()`.
type Authorizer interface {
	RequireAuth(ctx context.Context, address string) error
}

// CallerAuthorizer requires the context's attached caller to equal the
// address being authorized for. It is the only production implementation:
// there is no delegated-auth or multi-signer support in scope.
type CallerAuthorizer struct {
	logger domain.Logger
}

// NewCallerAuthorizer returns an Authorizer that logs rejections via logger.
func NewCallerAuthorizer(logger domain.Logger) *CallerAuthorizer {
	return &CallerAuthorizer{logger: logger.WithField("component", "auth")}
}

// RequireAuth returns ErrUnauthorized unless ctx's caller matches address.
func (a *CallerAuthorizer) RequireAuth(ctx context.Context, address string) error {
	caller, ok := CallerFromContext(ctx)
	if !ok || caller != address {
		a.logger.Warn("authorization failed",
			"request_id", RequestIDFromContext(ctx),
			"expected", address,
			"caller", caller)
		return fmt.Errorf("%w: caller does not match %s", apperrors.ErrUnauthorized, address)
	}
	return nil
}
