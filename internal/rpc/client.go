package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote glyphpack.v1.Encoder.
type Client struct {
	cc    grpc.ClientConnInterface
	conn  *grpc.ClientConn
	token string
}

// Dial connects to addr without transport security. The daemon listens on
// loopback by default. Message limits fit source.DefaultMaxBytes inputs unless
// opts include MaxInputBytes.
func Dial(addr, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		MaxInputBytes(0),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := NewClient(conn, token)
	c.conn = conn
	return c, nil
}

// MaxInputBytes sizes the client's message limits for inputs of up to n
// bytes.
func MaxInputBytes(n int64) grpc.DialOption {
	limit := MessageLimit(n)
	return grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(limit), grpc.MaxCallSendMsgSize(limit))
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: strings.TrimSpace(token)}
}

// Encode sends raw to the daemon and returns the serialized record.
func (c *Client) Encode(ctx context.Context, raw []byte, payloadType string) ([]byte, error) {
	ctx = c.outgoing(ctx)
	if payloadType != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, PayloadTypeKey, payloadType)
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, EncodeMethod, wrapperspb.Bytes(raw), out); err != nil {
		return nil, err
	}
	return []byte(out.GetValue()), nil
}

// Decode sends a serialized record and returns the original bytes.
func (c *Client) Decode(ctx context.Context, document []byte) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(c.outgoing(ctx), DecodeMethod, wrapperspb.String(string(document)), out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, AuthorizationKey, "Bearer "+c.token)
}
