package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/simaogato/transferflow/internal/domain"
)

// StatusReader is the slice of domain.TransferAPI the poller needs
type StatusReader interface {
	GetStatus(ctx context.Context, id int64) (domain.TransferStatus, error)
}

// Policy bounds a polling run
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy polls every 2 seconds for up to a minute
var DefaultPolicy = Policy{MaxAttempts: 30, Interval: 2 * time.Second}

// Attempt describes one failed status read
type Attempt struct {
	TransferID int64
	Number     int
	Err        error
}

// AttemptObserver is notified of every failed status read
type AttemptObserver func(Attempt)

// Result is the outcome of a polling run that did not time out
type Result struct {
	Status    domain.TransferStatus // Last observed status; terminal unless Abandoned
	Attempts  int
	Abandoned bool // The context was cancelled before a terminal status was seen
}

var errNotTerminal = errors.New("transfer not in a terminal state yet")

// StatusPoller observes a transfer until it reaches a terminal status
type StatusPoller struct {
	Reader   StatusReader
	Logger   *slog.Logger
	NewTimer func() backoff.Timer // nil uses real timers
}

// NewStatusPoller creates a new StatusPoller instance
func NewStatusPoller(reader StatusReader, logger *slog.Logger) *StatusPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPoller{
		Reader: reader,
		Logger: logger,
	}
}

// Poll reads the transfer status until it is terminal or the attempt budget is spent.
// Logic:
//  1. Reject a non-positive budget before any request
//  2. Read the status; a terminal status returns immediately
//  3. A non-terminal status or a failed read consumes an attempt and waits Interval
//  4. Budget spent: TIMEOUT_ERROR wrapping the last read failure, if any
//
// Read failures are absorbed (logged and passed to observe) until the budget runs out.
// Cancelling ctx abandons the run without an error.
func (p *StatusPoller) Poll(ctx context.Context, transferID int64, policy Policy, observe AttemptObserver) (Result, error) {
	if policy.MaxAttempts <= 0 {
		return Result{}, domain.ErrInvalidPollBudget
	}

	var result Result
	var lastErr error

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		result.Attempts++
		status, err := p.Reader.GetStatus(ctx, transferID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			lastErr = err
			p.Logger.Warn("transfer status read failed",
				slog.Int64("transfer_id", transferID),
				slog.Int("attempt", result.Attempts),
				slog.Int("max_attempts", policy.MaxAttempts),
				slog.String("kind", string(domain.KindOf(err))),
				slog.String("error", err.Error()),
			)
			if observe != nil {
				observe(Attempt{TransferID: transferID, Number: result.Attempts, Err: err})
			}
			return err
		}

		lastErr = nil
		result.Status = status
		if status.IsTerminal() {
			return nil
		}
		return errNotTerminal
	}

	b := backoff.WithMaxRetries(
		backoff.WithContext(backoff.NewConstantBackOff(policy.Interval), ctx),
		uint64(policy.MaxAttempts-1),
	)

	var timer backoff.Timer
	if p.NewTimer != nil {
		timer = p.NewTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, b, nil, timer)
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		result.Abandoned = true
		return result, nil
	default:
		return result, domain.NewTimeoutError(result.Attempts, lastErr)
	}
}
