package rpc

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"path"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/glyphpack/internal/build"
	"github.com/RowanDark/glyphpack/internal/encoder"
	"github.com/RowanDark/glyphpack/internal/logging"
	"github.com/RowanDark/glyphpack/internal/observability/metrics"
	"github.com/RowanDark/glyphpack/internal/record"
	"github.com/RowanDark/glyphpack/internal/source"
)

const (
	defaultPayloadType = "python"

	// recordOverhead covers the Base64 table, the metadata fields and the
	// JSON layout around the payload.
	recordOverhead = 64 << 10
)

// MessageLimit is the gRPC message size needed to move an input of up to
// maxInput bytes: the record carries it as Base64, so it outgrows the input.
// A non-positive maxInput means source.DefaultMaxBytes.
func MessageLimit(maxInput int64) int {
	if maxInput <= 0 {
		maxInput = source.DefaultMaxBytes
	}
	return base64.StdEncoding.EncodedLen(int(maxInput)) + recordOverhead
}

// Server implements EncoderServer. Each Encode call gets its own Encoder, so
// a Server is safe for concurrent RPCs.
type Server struct {
	token       string
	payloadType string
	maxInput    int64
	audit       *logging.AuditLogger
	log         *zap.Logger
	metrics     *metrics.Metrics
	newEncoder  func() *encoder.Encoder
}

type ServerOption func(*Server)

// WithToken requires "authorization: Bearer <token>" on every call.
func WithToken(token string) ServerOption {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// WithPayloadType sets the label used when a request carries none.
func WithPayloadType(ptype string) ServerOption {
	return func(s *Server) {
		if ptype = strings.TrimSpace(ptype); ptype != "" {
			s.payloadType = ptype
		}
	}
}

func WithAudit(l *logging.AuditLogger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.audit = l
		}
	}
}

func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithMaxInputBytes caps the raw input Encode accepts and sizes the gRPC
// message limits to match.
func WithMaxInputBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxInput = n
		}
	}
}

// WithEncoderFactory overrides how per-request encoders are built.
func WithEncoderFactory(fn func() *encoder.Encoder) ServerOption {
	return func(s *Server) {
		if fn != nil {
			s.newEncoder = fn
		}
	}
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		payloadType: defaultPayloadType,
		maxInput:    source.DefaultMaxBytes,
		audit:       logging.Discard("rpc"),
		log:         logging.Logger(),
		newEncoder:  encoder.NewDefault,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GRPCServer returns a grpc.Server with s registered, message limits sized
// for the input cap, and the metrics and auth interceptors installed. opts
// are applied after the defaults.
func (s *Server) GRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	limit := MessageLimit(s.maxInput)
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(limit),
		grpc.MaxSendMsgSize(limit),
		grpc.ChainUnaryInterceptor(s.observe, s.authorize),
	}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterEncoderServer(gs, s)
	return gs
}

func (s *Server) Encode(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	ptype := s.payloadType
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(PayloadTypeKey); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			ptype = strings.TrimSpace(values[0])
		}
	}
	if n := len(req.GetValue()); int64(n) > s.maxInput {
		return nil, status.Errorf(codes.ResourceExhausted, "input of %d bytes exceeds limit of %d", n, s.maxInput)
	}
	builder := build.New(
		build.WithEncoder(s.newEncoder()),
		build.WithAudit(s.audit),
		build.WithLogger(s.log),
		build.WithMetrics(s.metrics),
	)
	res, err := builder.Encode(ctx, req.GetValue(), ptype)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return wrapperspb.String(string(res.Document)), nil
}

func (s *Server) Decode(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	rec, err := record.Parse([]byte(req.GetValue()))
	if err != nil {
		s.emit(logging.EventDecode, logging.DecisionFail, err.Error(), nil)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	params, transformed, err := rec.Params()
	if err != nil {
		s.emit(logging.EventDecode, logging.DecisionFail, err.Error(), nil)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	raw := encoder.Decode(transformed, params)
	s.emit(logging.EventDecode, logging.DecisionAllow, "", map[string]any{
		"ptype": params.PayloadType,
		"bytes": len(raw),
	})
	return wrapperspb.Bytes(raw), nil
}

func (s *Server) authorize(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.token == "" {
		return handler(ctx, req)
	}
	if err := checkBearer(ctx, s.token); err != nil {
		s.emit(logging.EventRPCDenied, logging.DecisionDeny, err.Error(), map[string]any{"method": info.FullMethod})
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(ctx, req)
}

func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	code := status.Code(err)
	s.metrics.ObserveRPC(path.Base(info.FullMethod), code.String())
	s.emit(logging.EventRPCCall, decisionFor(code), "", map[string]any{
		"method": info.FullMethod,
		"code":   code.String(),
	})
	return resp, err
}

func checkBearer(ctx context.Context, token string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return errors.New("missing metadata")
	}
	values := md.Get(AuthorizationKey)
	if len(values) == 0 {
		return errors.New("missing authorization")
	}
	scheme, presented, found := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return errors.New("authorization must use the Bearer scheme")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(token)) != 1 {
		return errors.New("invalid auth token")
	}
	return nil
}

func decisionFor(code codes.Code) logging.Decision {
	switch code {
	case codes.OK:
		return logging.DecisionAllow
	case codes.Unauthenticated:
		return logging.DecisionDeny
	default:
		return logging.DecisionFail
	}
}

func (s *Server) emit(typ logging.EventType, decision logging.Decision, reason string, meta map[string]any) {
	if err := s.audit.Emit(logging.AuditEvent{
		EventType: typ,
		Decision:  decision,
		Reason:    reason,
		Metadata:  meta,
	}); err != nil {
		s.log.Warn("audit emit failed", zap.Error(err))
	}
}
