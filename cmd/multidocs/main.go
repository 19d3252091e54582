// Command multidocs builds a documentation site from several instances of
// one content plugin, each configured with its own ID and options.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/multidocs/internal/config"
	"git.home.luguber.info/inful/multidocs/internal/contentdocs"
	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
	"git.home.luguber.info/inful/multidocs/internal/version"
)

// Global carries process-wide dependencies into commands.
type Global struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Registry *plugin.Registry

	logger *slog.Logger
}

// CLI is the root command and its global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"multidocs.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run one build session over all configured instances"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild whenever watched files change"`
	Inspect InspectCmd `cmd:"" help:"Show the configured instances and their capabilities"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("multidocs"),
		kong.Description("Aggregate several documentation plugin instances into one site build."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		return derrors.NewCLIErrorAdapter(false, nil).WithWriter(stderr).
			HandleError(derrors.WrapError(err, derrors.CategoryInternal, "build command line parser").Build())
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	g := &Global{
		Stdout:   stdout,
		Stderr:   stderr,
		Registry: defaultRegistry(),
		logger:   config.NewLogger(stderr, config.LoggingConfig{}, cli.Verbose),
	}
	if err := kctx.Run(g, &cli); err != nil {
		return derrors.NewCLIErrorAdapter(cli.Verbose, g.logger).WithWriter(stderr).HandleError(err)
	}
	return 0
}

func defaultRegistry() *plugin.Registry {
	r := plugin.NewRegistry()
	if err := r.Register(contentdocs.Name, contentdocs.New); err != nil {
		panic(err)
	}
	return r
}

// load reads the configuration and replaces the bootstrap logger with one
// honoring the configured level and format.
func (g *Global) load(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	g.logger = config.NewLogger(g.Stderr, cfg.Logging, root.Verbose)
	slog.SetDefault(g.logger)
	return cfg, nil
}
