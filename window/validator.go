package window

import (
	"context"
	"log/slog"
	"time"
)

// Action is a user-initiated operation against a windowed instance.
type Action string

const (
	// ActionExecute starts or continues working through the instance.
	ActionExecute Action = "execute"
	// ActionSubmit hands the finished instance over for review.
	ActionSubmit Action = "submit"
	// ActionVerify is the manager review of a submitted instance. It is
	// gated on status only, never on the window: review of submitted
	// work stays possible after the window closes.
	ActionVerify Action = "verify"
)

// DenialReason explains a denied decision. The surrounding application
// turns these into user-facing messages.
type DenialReason string

const (
	ReasonAlreadyFinalized DenialReason = "already finalized"
	ReasonExpired          DenialReason = "time window has expired"
	ReasonNotYetOpen       DenialReason = "not yet available"
	ReasonNotSubmitted     DenialReason = "only submitted items can be verified"
)

// Decision is the outcome of an authorization check. MinutesUntilOpen
// is set on not-yet-open denials, MinutesRemaining on allowed
// execute/submit actions; both round partial minutes up so a 1-second
// remainder still reports a full minute.
type Decision struct {
	Allowed          bool
	Reason           DenialReason
	MinutesUntilOpen int
	MinutesRemaining int
}

func denied(reason DenialReason) Decision {
	return Decision{Reason: reason}
}

// StatusWriter persists instance status transitions. storage.Store
// satisfies it.
type StatusWriter interface {
	SetInstanceStatus(ctx context.Context, instanceID string, status Status) error
}

// Validator authorizes actions against windowed instances and expires
// instances whose window has passed. It holds no state between calls;
// every decision derives from the instance and the supplied instant.
type Validator struct {
	store  StatusWriter
	logger *slog.Logger
}

// NewValidator creates a validator. The store receives expiry
// transitions detected during authorization.
func NewValidator(store StatusWriter, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{store: store, logger: logger}
}

// Authorize decides whether action may proceed against inst at the
// given instant. now must come from a server-side clock; trusting a
// client-supplied instant would let callers forge an open window.
//
// Finalized instances are denied outright. Verification is a pure
// status check. Everything else is classified against the window:
// instances without one are always open, expired ones are transitioned
// to expired as a side effect before the denial is returned.
func (v *Validator) Authorize(ctx context.Context, inst *Instance, action Action, now time.Time) Decision {
	if inst.Status.Terminal() {
		return denied(ReasonAlreadyFinalized)
	}

	if action == ActionVerify {
		if inst.Status != StatusSubmitted {
			return denied(ReasonNotSubmitted)
		}
		return Decision{Allowed: true}
	}

	start, end, ok := inst.Window()
	if !ok {
		return Decision{Allowed: true}
	}

	switch {
	case now.Before(start):
		return Decision{
			Reason:           ReasonNotYetOpen,
			MinutesUntilOpen: ceilMinutes(start.Sub(now)),
		}
	case now.After(end):
		v.expireIfNeeded(ctx, inst)
		return denied(ReasonExpired)
	default:
		return Decision{
			Allowed:          true,
			MinutesRemaining: ceilMinutes(end.Sub(now)),
		}
	}
}

// expireIfNeeded moves inst to the expired state exactly once. Safe to
// call redundantly: concurrent authorization checks may race here, and
// repeated identical transitions are a no-op at the store.
func (v *Validator) expireIfNeeded(ctx context.Context, inst *Instance) {
	if inst.Status == StatusExpired {
		return
	}
	if err := v.store.SetInstanceStatus(ctx, inst.ID, StatusExpired); err != nil {
		v.logger.Warn("failed to expire instance",
			"instance_id", inst.ID,
			"error", err)
		return
	}
	v.logger.Info("instance expired",
		"instance_id", inst.ID,
		"template_id", inst.TemplateID)
	inst.Status = StatusExpired
}

// ceilMinutes converts d to whole minutes, rounding up.
func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
