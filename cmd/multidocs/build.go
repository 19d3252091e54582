package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/multidocs/internal/config"
	"git.home.luguber.info/inful/multidocs/internal/contentdocs"
	"git.home.luguber.info/inful/multidocs/internal/host"
	"git.home.luguber.info/inful/multidocs/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output     string `short:"o" help:"Override site.out_dir"`
	Production bool   `help:"Configure production bundles"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := g.load(root)
	if err != nil {
		return err
	}
	applyOutput(cfg, b.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := newPipeline(g, metrics.NoopRecorder{}, b.Production)
	res, err := pipeline.Build(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.Stdout, "Built %d routes from %d of %d instances (build %s)\n",
		len(res.Routes), len(res.Loaded), len(res.Instances), res.BuildID)
	return nil
}

func applyOutput(cfg *config.Config, output string) {
	if output != "" {
		cfg.Site.OutDir = output
	}
}

func newPipeline(g *Global, recorder metrics.Recorder, production bool) *host.Pipeline[contentdocs.LoadedContent] {
	return host.NewPipeline[contentdocs.LoadedContent](g.Registry,
		host.WithLogger(g.logger),
		host.WithRecorder(recorder),
		host.WithProduction(production))
}
