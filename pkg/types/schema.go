package types

import "github.com/castellan-io/castellan/pkg/action"

// FunctionSchema describes a governed function: its selector, canonical
// signature, coarse operation type, and which actions are even
// meaningful for it. Protected schemas cannot be removed or modified
// through ordinary administrative calls.
type FunctionSchema struct {
	Selector      Selector      `json:"selector"`
	Signature     string        `json:"signature"`
	OperationType OperationType `json:"operation_type"`
	Name          string        `json:"name"`
	Supported     action.Bitmap `json:"supported"`
	Protected     bool          `json:"protected"`
}

// Supports reports whether the action is meaningful for this function.
func (s *FunctionSchema) Supports(a action.Action) bool {
	return s.Supported.Has(a)
}
