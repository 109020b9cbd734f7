package cipher

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/RowanDark/glyphpack/internal/encoder"
	"github.com/RowanDark/glyphpack/internal/record"
)

func TestPipelineExecution(t *testing.T) {
	tests := []struct {
		name       string
		operations []OperationConfig
		input      string
		expected   string
	}{
		{
			name:       "single operation",
			operations: []OperationConfig{{Name: "base64_encode"}},
			input:      "hello",
			expected:   "aGVsbG8=",
		},
		{
			name: "double encoding",
			operations: []OperationConfig{
				{Name: "base64_encode"},
				{Name: "base64_encode"},
			},
			input:    "test",
			expected: "ZEdWemRBPT0=",
		},
		{
			name: "mask then rotate",
			operations: []OperationConfig{
				{Name: "xor_mask", Parameters: map[string]interface{}{ParamKey: 5}},
				{Name: "rotate_left", Parameters: map[string]interface{}{ParamRotation: 3}},
				{Name: "base64_encode"},
			},
			input:    "AB",
			expected: "Ijo=",
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{
				Operations: tt.operations,
				Reversible: true,
			}

			result, err := pipeline.Execute(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("pipeline execution failed: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(result))
			}
		})
	}
}

func TestLayeredPipelineMatchesEncoder(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(3, 7))
	input := make([]byte, 512)
	for i := range input {
		input[i] = byte(i)
	}

	for i := 0; i < 50; i++ {
		p := encoder.New(r).DrawParams("elf")
		want := encoder.Apply(input, p)

		pipeline := LayeredPipeline(p)
		got, err := pipeline.Execute(ctx, input)
		if err != nil {
			t.Fatalf("forward pipeline failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("draw %d: pipeline output differs from encoder.Apply", i)
		}

		reversed, err := pipeline.Reverse()
		if err != nil {
			t.Fatalf("failed to create reverse pipeline: %v", err)
		}
		names := []string{reversed.Operations[0].Name, reversed.Operations[1].Name, reversed.Operations[2].Name}
		if names[0] != "rotate_right" || names[1] != "unsubstitute" || names[2] != "xor_mask" {
			t.Fatalf("unexpected reverse order: %v", names)
		}

		decoded, err := reversed.Execute(ctx, got)
		if err != nil {
			t.Fatalf("reverse pipeline failed: %v", err)
		}
		if !bytes.Equal(decoded, input) {
			t.Fatalf("draw %d: roundtrip failed", i)
		}
	}
}

func TestLayeredPipelineSurvivesJSON(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(1, 1))
	p := encoder.New(r).DrawParams("sh")

	data, err := json.Marshal(LayeredPipeline(p))
	if err != nil {
		t.Fatalf("marshal pipeline: %v", err)
	}
	var loaded Pipeline
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal pipeline: %v", err)
	}

	input := []byte("json round trip")
	encoded, err := loaded.Execute(ctx, input)
	if err != nil {
		t.Fatalf("loaded pipeline failed: %v", err)
	}
	if want := encoder.Apply(input, p); !bytes.Equal(encoded, want) {
		t.Fatalf("loaded pipeline output differs from encoder.Apply")
	}
	reversed, err := loaded.Reverse()
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	decoded, err := reversed.Execute(ctx, encoded)
	if err != nil {
		t.Fatalf("reverse execute: %v", err)
	}
	if !bytes.Equal(decoded, input) {
		t.Fatalf("expected %q, got %q", input, decoded)
	}
}

func TestRecordPipelineProducesPayloadText(t *testing.T) {
	ctx := context.Background()
	p := encoder.Params{Key: 5, Rotation: 3, Table: encoder.Identity(), PayloadType: "python"}

	text, err := RecordPipeline(p).Execute(ctx, []byte("AB"))
	if err != nil {
		t.Fatalf("record pipeline failed: %v", err)
	}
	if string(text) != "Ijo=" {
		t.Fatalf("expected Ijo=, got %q", text)
	}

	reversed, err := RecordPipeline(p).Reverse()
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if first := reversed.Operations[0].Name; first != "base64_decode" {
		t.Fatalf("expected reverse to start with base64_decode, got %s", first)
	}
	raw, err := reversed.Execute(ctx, text)
	if err != nil {
		t.Fatalf("reverse execute: %v", err)
	}
	if string(raw) != "AB" {
		t.Fatalf("expected AB, got %q", raw)
	}

	drawn := encoder.New(rand.New(rand.NewPCG(9, 9))).DrawParams("pe")
	input := bytes.Repeat([]byte{0x00, 0x7f, 0xff}, 100)
	text, err = RecordPipeline(drawn).Execute(ctx, input)
	if err != nil {
		t.Fatalf("record pipeline failed: %v", err)
	}
	if want := record.New(encoder.Apply(input, drawn), drawn).Payload; string(text) != want {
		t.Fatalf("pipeline text differs from record payload")
	}
}

func TestPipelineNonReversible(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "base64_encode"}},
		Reversible: false,
	}
	if _, err := pipeline.Reverse(); err == nil {
		t.Error("expected error when reversing a pipeline marked non-reversible")
	}

	reg := NewRegistry()
	reg.Register(newMock("one_way", OperationTypeTransform))
	oneWay := &Pipeline{
		Operations: []OperationConfig{{Name: "one_way"}},
		Reversible: true,
	}
	if _, err := oneWay.ReverseWith(reg); err == nil {
		t.Error("expected error when reversing an operation without an inverse")
	}
}

func TestPipelineUnknownOperation(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{{Name: "unknown_operation"}},
	}

	if _, err := pipeline.Execute(context.Background(), []byte("test")); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipeline := &Pipeline{Operations: []OperationConfig{{Name: "base64_encode"}}}
	if _, err := pipeline.Execute(ctx, []byte("x")); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestPipelineEmptyOperations(t *testing.T) {
	pipeline := &Pipeline{
		Operations: []OperationConfig{},
		Reversible: true,
	}

	input := []byte("test")
	result, err := pipeline.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("empty pipeline should not fail: %v", err)
	}
	if string(result) != string(input) {
		t.Errorf("empty pipeline should return input unchanged")
	}
}
