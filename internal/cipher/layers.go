package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/RowanDark/glyphpack/internal/encoder"
)

// Parameter names understood by the layer operations.
const (
	ParamKey      = "key"
	ParamTable    = "table"
	ParamRotation = "rotation"
)

// XORMaskOp XORs every byte with a single-byte key. It is its own reverse.
type XORMaskOp struct {
	BaseOperation
}

func (op *XORMaskOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := intParam(params, ParamKey, 0, 255)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	encoder.Mask(out, input, byte(key))
	return out, nil
}

// SubstituteOp maps every byte through a permutation table.
type SubstituteOp struct {
	BaseOperation
}

func (op *SubstituteOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	table, err := tableParam(params)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	encoder.Substitute(out, input, &table)
	return out, nil
}

// UnsubstituteOp maps every byte through the inverse of a permutation table.
type UnsubstituteOp struct {
	BaseOperation
}

func (op *UnsubstituteOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	table, err := tableParam(params)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	encoder.Unsubstitute(out, input, &table)
	return out, nil
}

// RotateLeftOp rotates the bits of every byte to the left.
type RotateLeftOp struct {
	BaseOperation
}

func (op *RotateLeftOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	r, err := intParam(params, ParamRotation, 0, 7)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	encoder.RotateLeft(out, input, uint8(r))
	return out, nil
}

// RotateRightOp rotates the bits of every byte to the right.
type RotateRightOp struct {
	BaseOperation
}

func (op *RotateRightOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	r, err := intParam(params, ParamRotation, 0, 7)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(input))
	encoder.RotateRight(out, input, uint8(r))
	return out, nil
}

// LayeredPipeline returns the pipeline equivalent of encoder.Apply for p:
// xor_mask, substitute, rotate_left. Its Reverse decodes. The table is stored
// as bytes so the pipeline marshals to JSON as a Base64 string.
func LayeredPipeline(p encoder.Params) *Pipeline {
	return &Pipeline{
		Operations: []OperationConfig{
			{Name: "xor_mask", Parameters: map[string]interface{}{ParamKey: int(p.Key)}},
			{Name: "substitute", Parameters: map[string]interface{}{ParamTable: p.Table.Bytes()}},
			{Name: "rotate_left", Parameters: map[string]interface{}{ParamRotation: int(p.Rotation)}},
		},
		Reversible: true,
	}
}

// RecordPipeline is LayeredPipeline followed by base64_encode. Its output is
// the "p" field of the record for p, and its Reverse decodes that field
// straight back to the original bytes.
func RecordPipeline(p encoder.Params) *Pipeline {
	pipeline := LayeredPipeline(p)
	pipeline.Operations = append(pipeline.Operations, OperationConfig{Name: "base64_encode"})
	return pipeline
}

// intParam reads an integer parameter. JSON-decoded pipelines carry numbers
// as float64.
func intParam(params map[string]interface{}, name string, lo, hi int) (int, error) {
	raw, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	var v int
	switch n := raw.(type) {
	case int:
		v = n
	case uint8:
		v = int(n)
	case int64:
		v = int(n)
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("parameter %q must be an integer, got %v", name, n)
		}
		v = int(n)
	default:
		return 0, fmt.Errorf("parameter %q has unsupported type %T", name, raw)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("parameter %q out of range [%d,%d]: %d", name, lo, hi, v)
	}
	return v, nil
}

// tableParam accepts an encoder.Table, raw bytes, or a Base64 string.
func tableParam(params map[string]interface{}) (encoder.Table, error) {
	raw, ok := params[ParamTable]
	if !ok {
		return encoder.Table{}, fmt.Errorf("missing parameter %q", ParamTable)
	}
	switch t := raw.(type) {
	case encoder.Table:
		if !t.Valid() {
			return encoder.Table{}, encoder.ErrInvalidTable
		}
		return t, nil
	case *encoder.Table:
		if t == nil || !t.Valid() {
			return encoder.Table{}, encoder.ErrInvalidTable
		}
		return *t, nil
	case []byte:
		return encoder.TableFromBytes(t)
	case string:
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return encoder.Table{}, fmt.Errorf("parameter %q: %w", ParamTable, err)
		}
		return encoder.TableFromBytes(b)
	default:
		return encoder.Table{}, fmt.Errorf("parameter %q has unsupported type %T", ParamTable, raw)
	}
}

func registerLayerOperations(reg *Registry) {
	xorMask := &XORMaskOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_mask",
			TypeValue:        OperationTypeTransform,
			DescriptionValue: "XOR every byte with a single-byte key",
		},
	}
	xorMask.ReverseOp = xorMask

	substitute := &SubstituteOp{
		BaseOperation: BaseOperation{
			NameValue:        "substitute",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Map every byte through a 256-entry permutation table",
		},
	}
	unsubstitute := &UnsubstituteOp{
		BaseOperation: BaseOperation{
			NameValue:        "unsubstitute",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Map every byte through the inverse permutation table",
		},
	}
	substitute.ReverseOp = unsubstitute
	unsubstitute.ReverseOp = substitute

	rotateLeft := &RotateLeftOp{
		BaseOperation: BaseOperation{
			NameValue:        "rotate_left",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Rotate the bits of every byte left",
		},
	}
	rotateRight := &RotateRightOp{
		BaseOperation: BaseOperation{
			NameValue:        "rotate_right",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Rotate the bits of every byte right",
		},
	}
	rotateLeft.ReverseOp = rotateRight
	rotateRight.ReverseOp = rotateLeft

	mustRegister(reg, xorMask, substitute, unsubstitute, rotateLeft, rotateRight)
}
