package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/apiservice/cmd/apiservice/internal/check"
	"github.com/broady/apiservice/cmd/apiservice/internal/serve"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Serve   serve.Cmd  `cmd:"" help:"Serve the demo handler catalog over HTTP."`
	Check   check.Cmd  `cmd:"" help:"Scan a package for handler types and report duplicate service keys."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("apiservice"),
		kong.Description("Service action dispatcher host and tools."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
