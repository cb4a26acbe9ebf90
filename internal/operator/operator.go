// Package operator wraps internal/custody's AssetManager with the
// resilience policies an operator-facing pipeline needs: a circuit breaker
// that trips on repeated signature failures (so a misbehaving or
// compromised operator can't hammer the ledger with forged batches) and a
// rate limiter bounding how often a trade batch may be submitted.
package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dclob/exchange/internal/auth"
	"github.com/dclob/exchange/internal/bignum"
	"github.com/dclob/exchange/internal/custody"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"
)

// WithdrawDecision is the operator's approve/reject call on a pending
// withdraw request, identified the same way ExecuteWithdraw validates it:
// id plus the full (user, token, amount) it must match.
type WithdrawDecision struct {
	ID      uint64
	User    string
	Token   string
	Amount  bignum.Int
	Approve bool
}

// Dispatcher is the operator-facing entry point for withdraw decisions and
// trade batch uploads, sitting in front of an *custody.AssetManager.
type Dispatcher struct {
	manager    *custody.AssetManager
	breaker    failsafe.Executor[any]
	limiter    *rate.Limiter
	authorizer auth.Authorizer
	logger     domain.Logger
}

// New returns a Dispatcher over manager. The circuit breaker, shared by
// ExecuteWithdraw and TradeUpload, opens once 5 of the last 10 calls through
// it fail with a signature or authorization error, grounded on the teacher's HTTP client breaker
// (WithFailureThresholdRatio(5, 10)); batchesPerSecond bounds how many
// TradeUpload calls may proceed per second, with a burst of one.
func New(manager *custody.AssetManager, batchesPerSecond float64, logger domain.Logger) *Dispatcher {
	breaker := circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return errors.Is(err, apperrors.ErrSignatureInvalid) || errors.Is(err, apperrors.ErrUnauthorized)
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		Build()

	return &Dispatcher{
		manager:    manager,
		breaker:    failsafe.With[any](breaker),
		limiter:    rate.NewLimiter(rate.Limit(batchesPerSecond), 1),
		authorizer: auth.NewCallerAuthorizer(logger),
		logger:     logger.WithField("component", "operator"),
	}
}

// ExecuteWithdraw approves or rejects a pending withdraw request.
func (d *Dispatcher) ExecuteWithdraw(ctx context.Context, caller string, req WithdrawDecision) error {
	err := d.breaker.Run(func() error {
		return d.manager.ExecuteWithdraw(ctx, caller, req.ID, req.User, req.Token, req.Amount, req.Approve)
	})
	if err != nil {
		d.logger.Warn("withdraw execution failed", "id", req.ID, "error", err)
		return err
	}
	d.logger.Info("withdraw executed", "id", req.ID, "approved", req.Approve)
	return nil
}

// TradeUpload applies an operator-matched trade batch, rate-limited to
// batchesPerSecond and tripping the circuit breaker on repeated signature
// or authorization failures.
func (d *Dispatcher) TradeUpload(ctx context.Context, caller string, batch custody.TradeUploadData) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("trade upload rate limited: %w", err)
	}

	err := d.breaker.Run(func() error {
		return d.manager.TradeUpload(caller, batch)
	})
	if err != nil {
		d.logger.Warn("trade batch rejected", "batch_id", batch.BatchID, "error", err)
		return err
	}
	d.logger.Info("trade batch applied", "batch_id", batch.BatchID, "trades", len(batch.Trades))
	return nil
}

// Action is the single-entrypoint union AssetManager.execute_action
// dispatches over: exactly one of Withdraw or Trades is set.
type Action struct {
	Withdraw *WithdrawDecision
	Trades   *custody.TradeUploadData
}

// ExecuteAction dispatches a single operator action, mirroring the
// contract's execute_action entrypoint rather than exposing ExecuteWithdraw
// and TradeUpload as independently-callable methods on the host ABI.
func (d *Dispatcher) ExecuteAction(ctx context.Context, caller string, action Action) error {
	switch {
	case action.Withdraw != nil:
		return d.ExecuteWithdraw(ctx, caller, *action.Withdraw)
	case action.Trades != nil:
		return d.TradeUpload(ctx, caller, *action.Trades)
	default:
		return fmt.Errorf("operator action: neither withdraw decision nor trade batch set")
	}
}

// ExecuteActionAuthorized is the entrypoint a transport layer should call
// once it has attached the authorized caller to ctx via auth.WithCaller,
// mirroring the teacher's grpc interceptor pulling identity off the
// incoming request rather than trusting a caller string an RPC handler
// forwards unchecked. It rejects before ExecuteAction ever runs if ctx
// carries no caller matching requiredCaller.
func (d *Dispatcher) ExecuteActionAuthorized(ctx context.Context, requiredCaller string, action Action) error {
	if err := d.authorizer.RequireAuth(ctx, requiredCaller); err != nil {
		d.logger.Warn("rejected unauthorized operator action",
			"request_id", auth.RequestIDFromContext(ctx), "required_caller", requiredCaller)
		return err
	}
	return d.ExecuteAction(ctx, requiredCaller, action)
}
