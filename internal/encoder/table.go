package encoder

import (
	"errors"
	"fmt"
)

// TableSize is the number of entries in a substitution table.
const TableSize = 256

// ErrInvalidTable reports a table that is not a bijection on 0..255.
var ErrInvalidTable = errors.New("substitution table is not a permutation of 0..255")

// Rand is the randomness capability the encoder depends on. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Table is a substitution table mapping each byte value to its replacement.
type Table [TableSize]byte

// Identity returns the table that maps every byte to itself.
func Identity() Table {
	var t Table
	for i := range t {
		t[i] = byte(i)
	}
	return t
}

// NewTable returns a uniformly random permutation of 0..255 drawn from r.
func NewTable(r Rand) Table {
	t := Identity()
	r.Shuffle(TableSize, func(i, j int) {
		t[i], t[j] = t[j], t[i]
	})
	return t
}

// TableFromBytes copies b into a Table after checking that it holds exactly
// 256 distinct values.
func TableFromBytes(b []byte) (Table, error) {
	var t Table
	if len(b) != TableSize {
		return t, fmt.Errorf("%w: got %d entries, want %d", ErrInvalidTable, len(b), TableSize)
	}
	copy(t[:], b)
	if !t.Valid() {
		return t, ErrInvalidTable
	}
	return t, nil
}

// Valid reports whether every byte value appears exactly once.
func (t *Table) Valid() bool {
	var seen [TableSize]bool
	for _, v := range t {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Inverse returns the table u with u[t[i]] == i for every i.
func (t *Table) Inverse() Table {
	var inv Table
	for i, v := range t {
		inv[v] = byte(i)
	}
	return inv
}

// Bytes returns a copy of the table as a byte slice.
func (t *Table) Bytes() []byte {
	out := make([]byte, TableSize)
	copy(out, t[:])
	return out
}
