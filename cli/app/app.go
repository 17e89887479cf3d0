// Package app builds the sagan command line application.
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"

	"github.com/sagan-monitoring/sagan/cli/start"
	"github.com/sagan-monitoring/sagan/pkg/config"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "Sagan\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a sagan instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "sagan"
	ctl.Version = config.Version
	ctl.Usage = "Observability tool for Tendermint networks"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, start.NewCommands()...)
	return ctl
}
