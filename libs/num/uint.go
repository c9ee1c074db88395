package num

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Uint is a wrapper for a big unsigned int.
type Uint struct {
	u uint256.Int
}

// NewUint creates a new Uint with the value of the
// uint64 passed as a parameter.
func NewUint(val uint64) *Uint {
	return &Uint{*uint256.NewInt(val)}
}

// UintZero returns a new Uint set to zero.
func UintZero() *Uint {
	return NewUint(0)
}

// UintFromBig constructs a new Uint from a big.Int,
// returns true if overflow happened.
func UintFromBig(b *big.Int) (*Uint, bool) {
	u, overflow := uint256.FromBig(b)
	if overflow {
		return NewUint(0), true
	}
	return &Uint{*u}, false
}

// UintFromString creates a new Uint from a string
// interpreted using the given base. A big.Int is used to
// read the string, so all errors related to big.Int parsing
// apply here. Returns true if an error/overflow happened.
func UintFromString(str string, base int) (*Uint, bool) {
	b, ok := big.NewInt(0).SetString(str, base)
	if !ok {
		return NewUint(0), true
	}
	return UintFromBig(b)
}

// UintFromDecimal returns a new Uint from a Decimal,
// returns true on overflow.
func UintFromDecimal(d Decimal) (*Uint, bool) {
	return UintFromBig(d.BigInt())
}

// Min returns the smallest of the 2 numbers.
func Min(a, b *Uint) *Uint {
	if a.LT(b) {
		return a.Clone()
	}
	return b.Clone()
}

// Max returns the largest of the 2 numbers.
func Max(a, b *Uint) *Uint {
	if a.GT(b) {
		return a.Clone()
	}
	return b.Clone()
}

// Sum just removes the need to write num.NewUint(0).AddSum(x, y, z)
// so you can write num.Sum(x, y, z) instead, equivalent to x + y + z.
func Sum(vals ...*Uint) *Uint {
	return NewUint(0).AddSum(vals...)
}

func (z *Uint) Clone() *Uint {
	return &Uint{z.u}
}

func (z *Uint) Set(oth *Uint) *Uint {
	z.u.Set(&oth.u)
	return z
}

func (z *Uint) SetUint64(val uint64) *Uint {
	z.u.SetUint64(val)
	return z
}

func (z Uint) Uint64() uint64 {
	return z.u.Uint64()
}

func (z Uint) BigInt() *big.Int {
	return z.u.ToBig()
}

func (z *Uint) ToDecimal() Decimal {
	return DecimalFromUint(z)
}

// Add will add x and y then store the result into z.
// This is equivalent to `z = x + y`. z is returned for
// convenience, no new variable is created.
func (z *Uint) Add(x, y *Uint) *Uint {
	z.u.Add(&x.u, &y.u)
	return z
}

// AddSum adds multiple values at the same time to a given uint
// so x.AddSum(y, z) is equivalent to x + y + z.
func (z *Uint) AddSum(vals ...*Uint) *Uint {
	for _, x := range vals {
		z.u.Add(&z.u, &x.u)
	}
	return z
}

// Sub will subtract y from x then store the result into z.
// This is equivalent to `z = x - y`.
func (z *Uint) Sub(x, y *Uint) *Uint {
	z.u.Sub(&x.u, &y.u)
	return z
}

// Mul will multiply x and y then store the result into z.
// This is equivalent to `z = x * y`.
func (z *Uint) Mul(x, y *Uint) *Uint {
	z.u.Mul(&x.u, &y.u)
	return z
}

// Div will divide x by y then store the result into z.
// This is equivalent to `z = x / y`.
func (z *Uint) Div(x, y *Uint) *Uint {
	z.u.Div(&x.u, &y.u)
	return z
}

// Mod will compute x modulo y then store the result into z.
func (z *Uint) Mod(x, y *Uint) *Uint {
	z.u.Mod(&x.u, &y.u)
	return z
}

// EQ returns true if z == oth.
func (z *Uint) EQ(oth *Uint) bool {
	return z.u.Eq(&oth.u)
}

// NEQ returns true if z != oth.
func (z *Uint) NEQ(oth *Uint) bool {
	return !z.u.Eq(&oth.u)
}

// LT returns true if z < oth.
func (z *Uint) LT(oth *Uint) bool {
	return z.u.Lt(&oth.u)
}

// LTE returns true if z <= oth.
func (z *Uint) LTE(oth *Uint) bool {
	return z.u.Lt(&oth.u) || z.u.Eq(&oth.u)
}

// GT returns true if z > oth.
func (z *Uint) GT(oth *Uint) bool {
	return z.u.Gt(&oth.u)
}

// GTE returns true if z >= oth.
func (z *Uint) GTE(oth *Uint) bool {
	return z.u.Gt(&oth.u) || z.u.Eq(&oth.u)
}

// IsZero returns true if z == 0.
func (z *Uint) IsZero() bool {
	return z.u.IsZero()
}

func (z *Uint) String() string {
	return z.u.ToBig().String()
}

// MulDivUp computes x * y / d rounded towards positive infinity.
// Intermediate values use big.Int so the product cannot overflow.
func MulDivUp(x, y, d *Uint) *Uint {
	num := big.NewInt(0).Mul(x.BigInt(), y.BigInt())
	den := d.BigInt()
	r := big.NewInt(0)
	q, r := big.NewInt(0).QuoRem(num, den, r)
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	u, _ := UintFromBig(q)
	return u
}

// MulDivDown computes x * y / d rounded towards zero.
// Intermediate values use big.Int so the product cannot overflow.
func MulDivDown(x, y, d *Uint) *Uint {
	num := big.NewInt(0).Mul(x.BigInt(), y.BigInt())
	q := num.Div(num, d.BigInt())
	u, _ := UintFromBig(q)
	return u
}
