package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildagent/cmd/buildagent/commands"
	"git.home.luguber.info/inful/buildagent/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("buildagent"),
		kong.Description("CI build agent: acquires sources and executes dispatched jobs"),
		kong.Vars{"version": fmt.Sprintf("buildagent %s (%s, built %s)", version.Version, version.GitCommit, version.BuildTime)},
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
