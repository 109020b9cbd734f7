// Package build runs one glyphpack encoding from source to record file.
package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RowanDark/glyphpack/internal/encoder"
	"github.com/RowanDark/glyphpack/internal/logging"
	"github.com/RowanDark/glyphpack/internal/observability/metrics"
	"github.com/RowanDark/glyphpack/internal/record"
	"github.com/RowanDark/glyphpack/internal/source"
)

// State is how far a build progressed.
type State int

const (
	Unstarted State = iota
	ParametersDrawn
	Transformed
	Serialized
	Persisted
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case ParametersDrawn:
		return "parameters_drawn"
	case Transformed:
		return "transformed"
	case Serialized:
		return "serialized"
	case Persisted:
		return "persisted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage names the step a build failed in.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageEncode    Stage = "encode"
	StageSerialize Stage = "serialize"
	StageWrite     Stage = "write"
)

// ErrWrite matches failures to persist the record.
var ErrWrite = errors.New("write record")

// StageError wraps the cause of a failed build with the stage it failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result describes a build. On failure it still carries the state reached.
type Result struct {
	ID        string
	State     State
	Params    encoder.Params
	Record    record.Record
	Document  []byte
	InputSize int
	Output    string
}

// Builder runs builds. It wraps a single Encoder and is therefore not safe
// for concurrent use; create one per goroutine.
type Builder struct {
	enc     *encoder.Encoder
	audit   *logging.AuditLogger
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Builder)

func WithEncoder(enc *encoder.Encoder) Option {
	return func(b *Builder) {
		if enc != nil {
			b.enc = enc
		}
	}
}

func WithAudit(l *logging.AuditLogger) Option {
	return func(b *Builder) {
		if l != nil {
			b.audit = l
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func New(opts ...Option) *Builder {
	b := &Builder{
		audit: logging.Discard("build"),
		log:   logging.Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.enc == nil {
		b.enc = encoder.NewDefault()
	}
	return b
}

// Run fetches src, encodes it as payloadType and writes the record to out.
func (b *Builder) Run(ctx context.Context, src source.Source, payloadType, out string) (Result, error) {
	res := Result{ID: uuid.NewString(), Output: out}
	log := b.log.With(zap.String("build_id", res.ID), zap.String("source", src.Ref()))

	started := time.Now()
	raw, err := src.Fetch(ctx)
	b.metrics.ObserveStage(string(StageFetch), time.Since(started))
	if err != nil {
		b.emit(res.ID, logging.EventFetch, logging.DecisionFail, err.Error(), map[string]any{"source": src.Ref()})
		return res, b.fail(log, StageFetch, err)
	}
	b.emit(res.ID, logging.EventFetch, logging.DecisionAllow, "", map[string]any{
		"source": src.Ref(),
		"bytes":  len(raw),
	})
	log.Debug("fetched input", zap.Int("bytes", len(raw)))

	res, err = b.encode(res, raw, payloadType, log)
	if err != nil {
		return res, err
	}

	started = time.Now()
	err = ctx.Err()
	if err == nil {
		err = record.WriteFile(out, res.Record)
	}
	b.metrics.ObserveStage(string(StageWrite), time.Since(started))
	if err != nil {
		b.emit(res.ID, logging.EventRecordWrite, logging.DecisionFail, err.Error(), map[string]any{"output": out})
		return res, b.fail(log, StageWrite, fmt.Errorf("%w: %w", ErrWrite, err))
	}
	res.State = Persisted
	b.emit(res.ID, logging.EventRecordWrite, logging.DecisionAllow, "", map[string]any{
		"output": out,
		"bytes":  len(res.Document),
	})
	log.Info("record written", zap.String("output", out), zap.String("ptype", payloadType))
	return res, nil
}

// Encode runs the build on raw bytes without a source or an output file.
// The returned Result holds the serialized record in Document.
func (b *Builder) Encode(ctx context.Context, raw []byte, payloadType string) (Result, error) {
	res := Result{ID: uuid.NewString()}
	if err := ctx.Err(); err != nil {
		return res, b.fail(b.log, StageEncode, err)
	}
	return b.encode(res, raw, payloadType, b.log.With(zap.String("build_id", res.ID)))
}

func (b *Builder) encode(res Result, raw []byte, payloadType string, log *zap.Logger) (Result, error) {
	if !record.IsKnownPayloadType(payloadType) {
		log.Debug("unrecognized payload type, storing verbatim", zap.String("ptype", payloadType))
	}
	res.InputSize = len(raw)

	started := time.Now()
	res.Params = b.enc.DrawParams(payloadType)
	res.State = ParametersDrawn
	transformed, err := b.enc.EncodeWith(raw, res.Params)
	b.metrics.ObserveStage(string(StageEncode), time.Since(started))
	if err != nil {
		return res, b.fail(log, StageEncode, err)
	}
	res.State = Transformed
	b.emit(res.ID, logging.EventEncode, logging.DecisionInfo, "", map[string]any{
		"ptype": payloadType,
		"bytes": len(raw),
	})

	started = time.Now()
	res.Record = record.New(transformed, res.Params)
	doc, err := res.Record.Marshal()
	b.metrics.ObserveStage(string(StageSerialize), time.Since(started))
	if err != nil {
		return res, b.fail(log, StageSerialize, err)
	}
	res.Document = doc
	res.State = Serialized
	b.metrics.ObserveBuild(payloadType, len(raw))
	return res, nil
}

func (b *Builder) fail(log *zap.Logger, stage Stage, err error) error {
	b.metrics.ObserveFailure(string(stage))
	log.Warn("build failed", zap.String("stage", string(stage)), zap.Error(err))
	return &StageError{Stage: stage, Err: err}
}

func (b *Builder) emit(id string, typ logging.EventType, decision logging.Decision, reason string, meta map[string]any) {
	if err := b.audit.Emit(logging.AuditEvent{
		BuildID:   id,
		EventType: typ,
		Decision:  decision,
		Reason:    reason,
		Metadata:  meta,
	}); err != nil {
		b.log.Warn("audit emit failed", zap.Error(err))
	}
}
