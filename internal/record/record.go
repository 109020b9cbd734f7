// Package record serializes encoded payloads and their transform parameters
// into the canonical JSON document written by glyphpack.
package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RowanDark/glyphpack/internal/encoder"
)

// ErrInvalidRecord reports a record that cannot be decoded back into a payload.
var ErrInvalidRecord = errors.New("invalid record")

const indent = "    "

// Record is the persisted form of one encoding. Field order is part of the
// format.
type Record struct {
	Payload string `json:"p"`
	Meta    Meta   `json:"m"`
}

// Meta carries the transform parameters.
type Meta struct {
	Key         int    `json:"key"`
	Rotation    int    `json:"rot"`
	Table       string `json:"sub"`
	PayloadType string `json:"ptype"`
}

// New packages transformed bytes and the parameters that produced them.
func New(transformed []byte, p encoder.Params) Record {
	return Record{
		Payload: base64.StdEncoding.EncodeToString(transformed),
		Meta: Meta{
			Key:         int(p.Key),
			Rotation:    int(p.Rotation),
			Table:       base64.StdEncoding.EncodeToString(p.Table[:]),
			PayloadType: p.PayloadType,
		},
	}
}

// Marshal renders the record as indented JSON terminated by a newline. The
// output depends only on the record's contents.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a record produced by Marshal. Unknown fields are rejected.
func Parse(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if dec.More() {
		return Record{}, fmt.Errorf("%w: trailing data after record", ErrInvalidRecord)
	}
	return r, nil
}

// Params validates the record and returns its transform parameters together
// with the decoded payload bytes.
func (r Record) Params() (encoder.Params, []byte, error) {
	var p encoder.Params
	if r.Meta.Key < encoder.MinKey || r.Meta.Key > encoder.MaxKey {
		return p, nil, fmt.Errorf("%w: key %d not in [%d,%d]", ErrInvalidRecord, r.Meta.Key, encoder.MinKey, encoder.MaxKey)
	}
	if r.Meta.Rotation < encoder.MinRotation || r.Meta.Rotation > encoder.MaxRotation {
		return p, nil, fmt.Errorf("%w: rot %d not in [%d,%d]", ErrInvalidRecord, r.Meta.Rotation, encoder.MinRotation, encoder.MaxRotation)
	}
	raw, err := base64.StdEncoding.DecodeString(r.Meta.Table)
	if err != nil {
		return p, nil, fmt.Errorf("%w: sub: %v", ErrInvalidRecord, err)
	}
	table, err := encoder.TableFromBytes(raw)
	if err != nil {
		return p, nil, fmt.Errorf("%w: sub: %v", ErrInvalidRecord, err)
	}
	payload, err := base64.StdEncoding.DecodeString(r.Payload)
	if err != nil {
		return p, nil, fmt.Errorf("%w: p: %v", ErrInvalidRecord, err)
	}
	p = encoder.Params{
		Key:         byte(r.Meta.Key),
		Rotation:    uint8(r.Meta.Rotation),
		Table:       table,
		PayloadType: r.Meta.PayloadType,
	}
	return p, payload, nil
}

// PayloadSize returns the number of transformed bytes the record carries
// without decoding them.
func (r Record) PayloadSize() int {
	return base64.StdEncoding.DecodedLen(len(r.Payload)) - padding(r.Payload)
}

func padding(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '='; i-- {
		n++
	}
	return n
}

// KnownPayloadTypes lists the advisory payload type labels. Other labels are
// accepted and stored verbatim.
var KnownPayloadTypes = []string{"python", "shellcode", "powershell", "bat", "sh", "pe", "elf"}

// IsKnownPayloadType reports whether label is one of KnownPayloadTypes.
func IsKnownPayloadType(label string) bool {
	for _, known := range KnownPayloadTypes {
		if label == known {
			return true
		}
	}
	return false
}
