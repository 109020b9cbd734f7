package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func versionString() string {
	return fmt.Sprintf("%s %s", productName, version)
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the glyphpack version",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return cli.Exit("version takes no arguments", 2)
			}
			fmt.Fprintln(c.App.Writer, versionString())
			return nil
		},
	}
}
