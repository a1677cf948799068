//go:build property
// +build property

// Property-based tests for the action bitmap codec.
package action

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genAction() gopter.Gen {
	return gen.UInt8Range(0, uint8(numActions)-1).Map(func(v uint8) Action { return Action(v) })
}

// TestBitmapCodecProperties verifies pack/unpack round-trips for arbitrary
// action sets.
func TestBitmapCodecProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every packed action is reported set", prop.ForAll(
		func(actions []Action) bool {
			b := ToBitmap(actions...)
			for _, a := range actions {
				if !b.Has(a) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genAction()),
	))

	properties.Property("unpack contains no action that was not packed", prop.ForAll(
		func(actions []Action) bool {
			packed := make(map[Action]bool, len(actions))
			for _, a := range actions {
				packed[a] = true
			}
			for _, a := range ToBitmap(actions...).Actions() {
				if !packed[a] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genAction()),
	))

	properties.Property("Without inverts With", prop.ForAll(
		func(a Action) bool {
			return None.With(a).Without(a).IsEmpty()
		},
		genAction(),
	))

	properties.TestingRun(t)
}
