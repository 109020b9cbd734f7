package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/glyphpack/internal/build"
	"github.com/RowanDark/glyphpack/internal/record"
	"github.com/RowanDark/glyphpack/internal/rpc"
	"github.com/RowanDark/glyphpack/internal/source"
)

func buildCommand(e *session) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "encode a file or URL into a JSON record",
		UsageText: "glyphpack build --input <path|url> [--output <file>] [--ptype <label>] [--remote <addr>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"build", "i"},
				Usage:    "payload `PATH` or http(s) URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "record `FILE` (defaults to <output_dir>/<input name>.glyph.json)",
			},
			&cli.StringFlag{
				Name:  "ptype",
				Usage: "payload type `LABEL` stored in the record (python, shellcode, powershell, bat, sh, pe, elf or any other)",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "encode on the glyphpackd at `ADDR` instead of locally",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "bearer `TOKEN` for --remote",
			},
		},
		OnUsageError: usageError,
		Action:       e.runBuild,
	}
}

func (e *session) runBuild(c *cli.Context) error {
	input := strings.TrimSpace(c.String("input"))
	if input == "" {
		return cli.Exit("--input cannot be empty", 2)
	}
	ptype := strings.TrimSpace(c.String("ptype"))
	if ptype == "" {
		ptype = e.cfg.PayloadType
	}
	out := strings.TrimSpace(c.String("output"))
	if out == "" {
		out = defaultOutput(e.cfg.OutputDir, input)
	}

	src, err := source.Open(input,
		source.WithTimeout(e.cfg.Fetch.Timeout),
		source.WithMaxBytes(e.cfg.Fetch.MaxBytes),
		source.WithHTTP2(e.cfg.Fetch.EnableHTTP2),
		source.WithUserAgent(e.cfg.Fetch.UserAgent),
	)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if remote := strings.TrimSpace(c.String("remote")); remote != "" {
		token := c.String("token")
		if token == "" {
			token = e.cfg.Daemon.Token
		}
		err = buildRemote(c.Context, src, remote, token, ptype, out, e.cfg.Fetch.MaxBytes)
	} else {
		builder := build.New(build.WithAudit(e.audit), build.WithLogger(e.log))
		_, err = builder.Run(c.Context, src, ptype, out)
	}
	if err != nil {
		return failure(err)
	}
	fmt.Fprintf(c.App.Writer, "[+] Encoded file saved in %s (type: %s)\n", out, ptype)
	return nil
}

// buildRemote fetches locally and lets the daemon draw parameters and encode.
// The returned record is validated before it is written.
func buildRemote(ctx context.Context, src source.Source, addr, token, ptype, out string, maxInput int64) error {
	raw, err := src.Fetch(ctx)
	if err != nil {
		return &build.StageError{Stage: build.StageFetch, Err: err}
	}
	client, err := rpc.Dial(addr, token, rpc.MaxInputBytes(maxInput))
	if err != nil {
		return &build.StageError{Stage: build.StageEncode, Err: err}
	}
	defer client.Close()

	doc, err := client.Encode(ctx, raw, ptype)
	if err != nil {
		return &build.StageError{Stage: build.StageEncode, Err: err}
	}
	rec, err := record.Parse(doc)
	if err == nil {
		_, _, err = rec.Params()
	}
	if err != nil {
		return &build.StageError{Stage: build.StageSerialize, Err: err}
	}
	if err := record.WriteFile(out, rec); err != nil {
		return &build.StageError{Stage: build.StageWrite, Err: fmt.Errorf("%w: %w", build.ErrWrite, err)}
	}
	return nil
}

func defaultOutput(dir, input string) string {
	name := input
	if source.IsRemote(input) {
		name = strings.TrimRight(strings.SplitN(input, "?", 2)[0], "/")
	}
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		base = "payload"
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, base+".glyph.json")
}
