package workload

import "math/rand"

// Rational ...
type Rational struct {
	Nominator   uint64 `toml:"nominator"`
	Denominator uint64 `toml:"denominator"`
}

// NewRational ...
func NewRational(nominator uint64, denominator uint64) Rational {
	return Rational{
		Nominator:   nominator,
		Denominator: denominator,
	}
}

// MulUint32 ...
func (r Rational) MulUint32(v uint32) uint32 {
	return uint32(uint64(v) * r.Nominator / r.Denominator)
}

// Valid reports whether r is a probability in [0, 1].
func (r Rational) Valid() bool {
	return r.Denominator > 0 && r.Nominator <= r.Denominator
}

// Hit draws from rng and returns true with probability r.
func (r Rational) Hit(rng *rand.Rand) bool {
	return uint64(rng.Int63n(int64(r.Denominator))) < r.Nominator
}
