package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	JSON bool `help:"Print machine-readable JSON"`
}

func (i *InspectCmd) Run(g *Global, root *CLI) error {
	cfg, err := g.load(root)
	if err != nil {
		return err
	}
	out, err := newPipeline(g, nil, false).Inspect(cfg)
	if err != nil {
		return err
	}

	if i.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return derrors.WrapError(err, derrors.CategoryInternal, "encode inspection").Build()
		}
		return nil
	}

	fmt.Fprintf(g.Stdout, "Plugin: %s\n", out.Plugin)
	if out.ThemePath != "" {
		fmt.Fprintf(g.Stdout, "Theme:  %s\n", out.ThemePath)
	}
	if len(out.ClientModules) > 0 {
		fmt.Fprintf(g.Stdout, "Client modules: %s\n", strings.Join(out.ClientModules, ", "))
	}
	fmt.Fprintln(g.Stdout)

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLUGIN\tHOOKS")
	for _, inst := range out.Instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", inst.ID, inst.Plugin, joinHooks(inst.Hooks))
	}
	return tw.Flush()
}

func joinHooks(hooks []plugin.Hook) string {
	if len(hooks) == 0 {
		return "-"
	}
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = string(h)
	}
	return strings.Join(names, ",")
}
