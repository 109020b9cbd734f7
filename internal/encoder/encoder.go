package encoder

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	// MinKey and MaxKey bound the XOR mask drawn at encode time. Zero is
	// excluded because it leaves the data unchanged.
	MinKey = 1
	MaxKey = 255

	// MinRotation and MaxRotation bound the per-byte rotation. 0 and 8 are
	// both the identity.
	MinRotation = 1
	MaxRotation = 7
)

var (
	ErrInvalidKey      = errors.New("mask key out of range")
	ErrInvalidRotation = errors.New("rotation out of range")
)

// Params holds everything needed to invert an encoding.
type Params struct {
	Key         byte
	Rotation    uint8
	Table       Table
	PayloadType string
}

// Validate checks that p could have been produced by Encode.
func (p *Params) Validate() error {
	if p.Key < MinKey {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidKey, p.Key, MinKey, MaxKey)
	}
	if p.Rotation < MinRotation || p.Rotation > MaxRotation {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRotation, p.Rotation, MinRotation, MaxRotation)
	}
	if !p.Table.Valid() {
		return ErrInvalidTable
	}
	return nil
}

// Encoder draws fresh parameters for every call to Encode.
type Encoder struct {
	rng Rand
}

// New returns an Encoder that draws its parameters from r.
func New(r Rand) *Encoder {
	return &Encoder{rng: r}
}

// NewDefault returns an Encoder backed by a ChaCha8 generator seeded from the
// operating system's entropy source.
func NewDefault() *Encoder {
	var seed [32]byte
	_, _ = cryptorand.Read(seed[:])
	return New(rand.New(rand.NewChaCha8(seed)))
}

// DrawParams draws a key, a rotation and a substitution table.
func (e *Encoder) DrawParams(payloadType string) Params {
	key := byte(MinKey + e.rng.IntN(MaxKey-MinKey+1))
	rot := uint8(MinRotation + e.rng.IntN(MaxRotation-MinRotation+1))
	return Params{
		Key:         key,
		Rotation:    rot,
		Table:       NewTable(e.rng),
		PayloadType: payloadType,
	}
}

// Encode draws new parameters and transforms raw with them. The payload type
// is carried through untouched.
func (e *Encoder) Encode(raw []byte, payloadType string) ([]byte, Params) {
	p := e.DrawParams(payloadType)
	return Apply(raw, p), p
}

// EncodeWith transforms raw using caller-supplied parameters.
func (e *Encoder) EncodeWith(raw []byte, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return Apply(raw, p), nil
}

// Apply runs mask, substitute and rotate-left over a copy of raw. p is not
// validated.
func Apply(raw []byte, p Params) []byte {
	out := make([]byte, len(raw))
	Mask(out, raw, p.Key)
	Substitute(out, out, &p.Table)
	RotateLeft(out, out, p.Rotation)
	return out
}

// Decode inverts Apply: rotate-right, unsubstitute, then unmask.
func Decode(data []byte, p Params) []byte {
	out := make([]byte, len(data))
	RotateRight(out, data, p.Rotation)
	Unsubstitute(out, out, &p.Table)
	Mask(out, out, p.Key)
	return out
}
