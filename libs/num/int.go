package num

// Int is a wrapper over a Uint that handles signed values.
// The zero value is ... zero, with a positive sign.
type Int struct {
	// U is the underlying unsigned magnitude.
	U *Uint
	// s is the sign, true for >= 0.
	s bool
}

// NewInt creates a new Int with the value of the int64 passed as a parameter.
func NewInt(val int64) *Int {
	if val < 0 {
		return &Int{
			U: NewUint(uint64(-val)),
			s: false,
		}
	}
	return &Int{
		U: NewUint(uint64(val)),
		s: true,
	}
}

// IntZero returns a new Int set to zero.
func IntZero() *Int {
	return NewInt(0)
}

// IntFromUint creates a new Int with the value of the
// given Uint, the sign parameter is true for a positive value.
func IntFromUint(u *Uint, s bool) *Int {
	return &Int{
		U: u.Clone(),
		s: s,
	}
}

func (i *Int) Clone() *Int {
	return &Int{
		U: i.U.Clone(),
		s: i.s,
	}
}

// IsNegative tests if the stored value is negative,
// returns false if zero.
func (i *Int) IsNegative() bool {
	return !i.s && !i.U.IsZero()
}

// IsPositive tests if the stored value is positive,
// returns false if zero.
func (i *Int) IsPositive() bool {
	return i.s && !i.U.IsZero()
}

// IsZero tests if the stored value is zero.
func (i *Int) IsZero() bool {
	return i.U.IsZero()
}

// FlipSign changes the sign of the number from - to + and vice versa.
func (i *Int) FlipSign() {
	i.s = !i.s
}

// Neg returns a clone of the value with the sign flipped.
func (i *Int) Neg() *Int {
	n := i.Clone()
	n.FlipSign()
	return n
}

// EQ returns true if the two signed values are equal.
func (i *Int) EQ(oth *Int) bool {
	if i.U.IsZero() && oth.U.IsZero() {
		return true
	}
	return i.s == oth.s && i.U.EQ(oth.U)
}

// String returns a string version of the number.
func (i *Int) String() string {
	s := i.U.String()
	if i.IsNegative() {
		return "-" + s
	}
	return s
}

// AddUint adds the signed value to u and reports whether the result
// would be negative. On underflow the returned value is zero and
// ok is false; u itself is never mutated.
func (i *Int) AddUint(u *Uint) (*Uint, bool) {
	if i.s {
		return Sum(u, i.U), true
	}
	if i.U.GT(u) {
		return UintZero(), false
	}
	return UintZero().Sub(u, i.U), true
}
