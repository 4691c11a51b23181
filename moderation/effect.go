package moderation

import (
	"github.com/vrooli/jobs/errors"
)

// EffectKind is what happens to the reported object
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectSoftDelete
	EffectHardDelete
	EffectHide
)

func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "none"
	case EffectSoftDelete:
		return "soft_delete"
	case EffectHardDelete:
		return "hard_delete"
	case EffectHide:
		return "hide"
	default:
		return "unknown"
	}
}

// Effect is a planned change to one object
type Effect struct {
	Kind   EffectKind
	Object Object
}

// Plan decides the side effect of accepting action on obj.
// NonIssue and FalseReport plan EffectNone. Hiding a type that cannot be
// hidden returns ErrUnsupported; SuspendUser returns ErrNotImplemented.
func Plan(action Action, obj Object) (Effect, error) {
	if obj == nil {
		return Effect{}, errors.NewInvalidRequestError("report has no reported object")
	}

	switch action {
	case ActionNonIssue, ActionFalseReport:
		return Effect{Kind: EffectNone, Object: obj}, nil

	case ActionDelete:
		if obj.Type().SoftDeletable() {
			return Effect{Kind: EffectSoftDelete, Object: obj}, nil
		}
		return Effect{Kind: EffectHardDelete, Object: obj}, nil

	case ActionHideUntilFixed:
		if !obj.Type().Hideable() {
			return Effect{}, errors.NewUnsupportedError("%s objects cannot be hidden", obj.Type())
		}
		return Effect{Kind: EffectHide, Object: obj}, nil

	case ActionSuspendUser:
		return Effect{}, errors.NewNotImplementedError("action %s", action)

	default:
		return Effect{}, errors.NewInvalidRequestError("unknown moderation action %q", action)
	}
}
