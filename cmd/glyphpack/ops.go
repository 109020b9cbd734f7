package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/RowanDark/glyphpack/internal/cipher"
)

func opsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ops",
		Usage:     "list the registered byte operations",
		UsageText: "glyphpack ops [--type encode|decode|transform] [NAME]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "only list operations of `TYPE` (encode, decode, transform)",
			},
		},
		OnUsageError: usageError,
		Action: func(c *cli.Context) error {
			var ops []cipher.Operation
			switch {
			case c.NArg() > 1:
				return cli.Exit("ops takes at most one operation name", 2)
			case c.NArg() == 1:
				op, ok := cipher.GetOperation(c.Args().First())
				if !ok {
					return failure(fmt.Errorf("unknown operation %q", c.Args().First()))
				}
				ops = []cipher.Operation{op}
			case c.String("type") != "":
				opType := cipher.OperationType(strings.ToLower(strings.TrimSpace(c.String("type"))))
				switch opType {
				case cipher.OperationTypeEncode, cipher.OperationTypeDecode, cipher.OperationTypeTransform:
				default:
					return cli.Exit(fmt.Sprintf("unknown operation type %q", c.String("type")), 2)
				}
				ops = cipher.Default().ListByType(opType)
			default:
				ops = cipher.Default().List()
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tREVERSE\tDESCRIPTION")
			for _, op := range ops {
				reverse := "-"
				if rev, ok := op.Reverse(); ok {
					reverse = rev.Name()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), reverse, op.Description())
			}
			return tw.Flush()
		},
	}
}
