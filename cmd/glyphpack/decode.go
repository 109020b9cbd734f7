package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/RowanDark/glyphpack/internal/cipher"
	"github.com/RowanDark/glyphpack/internal/logging"
	"github.com/RowanDark/glyphpack/internal/record"
	"github.com/RowanDark/glyphpack/internal/rpc"
)

func decodeCommand(e *session) *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "recover the original bytes from a record",
		UsageText: "glyphpack decode --input <record> --output <file> [--remote <addr>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "record `FILE`",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "destination `FILE` for the decoded bytes",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "decode on the glyphpackd at `ADDR` instead of locally",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "bearer `TOKEN` for --remote",
			},
		},
		OnUsageError: usageError,
		Action:       e.runDecode,
	}
}

func (e *session) runDecode(c *cli.Context) error {
	in := strings.TrimSpace(c.String("input"))
	out := strings.TrimSpace(c.String("output"))

	var raw []byte
	if remote := strings.TrimSpace(c.String("remote")); remote != "" {
		doc, err := os.ReadFile(in)
		if err != nil {
			return failure(fmt.Errorf("read record: %w", err))
		}
		token := c.String("token")
		if token == "" {
			token = e.cfg.Daemon.Token
		}
		client, err := rpc.Dial(remote, token, rpc.MaxInputBytes(e.cfg.Fetch.MaxBytes))
		if err != nil {
			return failure(err)
		}
		defer client.Close()
		if raw, err = client.Decode(c.Context, doc); err != nil {
			return failure(fmt.Errorf("remote decode: %w", err))
		}
	} else {
		rec, err := record.ReadFile(in)
		if err != nil {
			return e.decodeFailed(in, err)
		}
		params, _, err := rec.Params()
		if err != nil {
			return e.decodeFailed(in, err)
		}
		pipeline, err := cipher.RecordPipeline(params).Reverse()
		if err != nil {
			return e.decodeFailed(in, err)
		}
		if raw, err = pipeline.Execute(c.Context, []byte(rec.Payload)); err != nil {
			return e.decodeFailed(in, err)
		}
	}

	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return failure(fmt.Errorf("write output: %w", err))
	}
	e.emitDecode(in, logging.DecisionAllow, "", len(raw))
	e.log.Debug("record decoded", zap.String("input", in), zap.Int("bytes", len(raw)))
	fmt.Fprintf(c.App.Writer, "[+] Decoded %d bytes to %s\n", len(raw), out)
	return nil
}

func (e *session) decodeFailed(in string, err error) error {
	e.emitDecode(in, logging.DecisionFail, err.Error(), 0)
	return failure(fmt.Errorf("decode %s: %w", in, err))
}

func (e *session) emitDecode(in string, decision logging.Decision, reason string, n int) {
	meta := map[string]any{"input": in}
	if n > 0 {
		meta["bytes"] = n
	}
	if err := e.audit.Emit(logging.AuditEvent{
		EventType: logging.EventDecode,
		Decision:  decision,
		Reason:    reason,
		Metadata:  meta,
	}); err != nil {
		e.log.Warn("audit emit failed", zap.Error(err))
	}
}

func inspectCommand(e *session) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "show a record's parameters without decoding it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "record `FILE`",
				Required: true,
			},
		},
		OnUsageError: usageError,
		Action: func(c *cli.Context) error {
			rec, err := record.ReadFile(strings.TrimSpace(c.String("input")))
			if err != nil {
				return failure(err)
			}
			_, _, paramsErr := rec.Params()
			w := c.App.Writer
			fmt.Fprintf(w, "key:     %d\n", rec.Meta.Key)
			fmt.Fprintf(w, "rot:     %d\n", rec.Meta.Rotation)
			fmt.Fprintf(w, "ptype:   %s\n", rec.Meta.PayloadType)
			fmt.Fprintf(w, "payload: %d bytes\n", rec.PayloadSize())
			if paramsErr != nil {
				fmt.Fprintf(w, "valid:   no (%v)\n", paramsErr)
				return cli.Exit("", 1)
			}
			fmt.Fprintln(w, "valid:   yes")
			return nil
		},
	}
}
