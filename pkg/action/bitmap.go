package action

// Bitmap packs a set of actions into one fixed-width integer. The action
// set is closed and small (9 values), so 16 bits are plenty.
type Bitmap uint16

// None is the empty bitmap.
const None Bitmap = 0

// ToBitmap packs the given actions. Passing an out-of-range action is a
// programming error and panics; it is never a runtime fault.
func ToBitmap(actions ...Action) Bitmap {
	var b Bitmap
	for _, a := range actions {
		b = b.With(a)
	}
	return b
}

// With returns b with a set.
func (b Bitmap) With(a Action) Bitmap {
	mustBeValid(a)
	return b | 1<<a
}

// Without returns b with a cleared.
func (b Bitmap) Without(a Action) Bitmap {
	mustBeValid(a)
	return b &^ (1 << a)
}

// Has reports whether a is set in b.
func (b Bitmap) Has(a Action) bool {
	mustBeValid(a)
	return b&(1<<a) != 0
}

// Actions unpacks b into the actions it contains, in declaration order.
func (b Bitmap) Actions() []Action {
	var out []Action
	for a := Action(0); a < numActions; a++ {
		if b&(1<<a) != 0 {
			out = append(out, a)
		}
	}
	return out
}

// IsEmpty reports whether no action is set.
func (b Bitmap) IsEmpty() bool { return b == 0 }

func mustBeValid(a Action) {
	if !a.Valid() {
		panic("action: value out of range: " + a.String())
	}
}
