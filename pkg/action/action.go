// Package action defines the closed set of fine-grained authorization
// actions and the fixed-width bitmap used to store grants compactly.
package action

import "fmt"

// Action is one of the nine fine-grained permissions a role can hold on
// a function selector.
type Action uint8

const (
	// Time-delay workflow.
	TimeDelayRequest Action = iota
	TimeDelayApprove
	TimeDelayCancel

	// Meta-transaction workflow: signing authority.
	SignMetaApprove
	SignMetaCancel
	SignMetaRequestAndApprove

	// Meta-transaction workflow: execution (submission) authority.
	ExecuteMetaApprove
	ExecuteMetaCancel
	ExecuteMetaRequestAndApprove

	numActions
)

var actionNames = [numActions]string{
	TimeDelayRequest:             "TIME_DELAY_REQUEST",
	TimeDelayApprove:             "TIME_DELAY_APPROVE",
	TimeDelayCancel:              "TIME_DELAY_CANCEL",
	SignMetaApprove:              "SIGN_META_APPROVE",
	SignMetaCancel:               "SIGN_META_CANCEL",
	SignMetaRequestAndApprove:    "SIGN_META_REQUEST_AND_APPROVE",
	ExecuteMetaApprove:           "EXECUTE_META_APPROVE",
	ExecuteMetaCancel:            "EXECUTE_META_CANCEL",
	ExecuteMetaRequestAndApprove: "EXECUTE_META_REQUEST_AND_APPROVE",
}

func (a Action) String() string {
	if a >= numActions {
		return fmt.Sprintf("ACTION(%d)", uint8(a))
	}
	return actionNames[a]
}

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool { return a < numActions }

// Parse resolves an action by its canonical name.
func Parse(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// All returns every defined action in declaration order.
func All() []Action {
	out := make([]Action, numActions)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}

// IsSignMeta reports whether a grants off-line signing authority for a
// meta-transaction workflow.
func (a Action) IsSignMeta() bool {
	return a == SignMetaApprove || a == SignMetaCancel || a == SignMetaRequestAndApprove
}

// IsExecuteMeta reports whether a grants on-chain submission authority
// for a meta-transaction workflow.
func (a Action) IsExecuteMeta() bool {
	return a == ExecuteMetaApprove || a == ExecuteMetaCancel || a == ExecuteMetaRequestAndApprove
}

// MetaCounterpart returns the paired action on the other side of the
// sign/execute split. ok is false for time-delay actions, which have no
// counterpart.
func (a Action) MetaCounterpart() (Action, bool) {
	switch a {
	case SignMetaApprove:
		return ExecuteMetaApprove, true
	case SignMetaCancel:
		return ExecuteMetaCancel, true
	case SignMetaRequestAndApprove:
		return ExecuteMetaRequestAndApprove, true
	case ExecuteMetaApprove:
		return SignMetaApprove, true
	case ExecuteMetaCancel:
		return SignMetaCancel, true
	case ExecuteMetaRequestAndApprove:
		return SignMetaRequestAndApprove, true
	}
	return 0, false
}
