package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/RowanDark/glyphpack/internal/config"
	"github.com/RowanDark/glyphpack/internal/logging"
)

const productName = "glyphpack"

// session carries what every subcommand needs once Before has run.
type session struct {
	cfg   config.Config
	audit *logging.AuditLogger
	log   *zap.Logger
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code: 0 on success,
// 1 for runtime failures, 2 for usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.Run(args)
	if err == nil {
		return 0
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(exitErr.Error()); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintln(stderr, err)
	return 2
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &session{}
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, versionString())
	}
	return &cli.App{
		Name:      productName,
		Usage:     "obfuscate a payload into a self-describing JSON record",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "operational log `LEVEL` (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "audit-log",
				Usage: "append audit events to `PATH`",
			},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			buildCommand(e),
			decodeCommand(e),
			inspectCommand(e),
			opsCommand(),
			versionCommand(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return cli.Exit(fmt.Sprintf("unknown command: %s", c.Args().First()), 2)
			}
			_ = cli.ShowAppHelp(c)
			return cli.Exit("", 2)
		},
		OnUsageError: usageError,
		// Exit codes are handled by run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func (e *session) setup(c *cli.Context) error {
	switch c.Args().First() {
	case "", "version", "ops", "help", "h":
		return nil
	}

	// Warnings raised while resolving config, such as legacy GLYPH_*
	// variables, go through this logger until the configured one replaces it.
	boot, err := logging.NewTo(c.App.ErrWriter, "warn", false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logging.SetLogger(boot)

	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}
	if lvl := strings.TrimSpace(c.String("log-level")); lvl != "" {
		cfg.LogLevel = lvl
	}
	if path := strings.TrimSpace(c.String("audit-log")); path != "" {
		cfg.AuditLog = path
	}
	e.cfg = cfg

	logger, err := logging.NewTo(c.App.ErrWriter, cfg.LogLevel, false)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logging.SetLogger(logger)
	e.log = logger

	if cfg.AuditLog == "" {
		e.audit = logging.Discard(productName)
		return nil
	}
	audit, err := logging.NewAuditLogger(productName, logging.WithoutDefault(), logging.WithFile(cfg.AuditLog))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open audit log: %v", err), 1)
	}
	e.audit = audit
	return nil
}

func (e *session) teardown(*cli.Context) error {
	if e.log != nil {
		_ = e.log.Sync()
	}
	if e.audit != nil {
		return e.audit.Close()
	}
	return nil
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit(err.Error(), 2)
}

func failure(err error) error {
	return cli.Exit(err.Error(), 1)
}
