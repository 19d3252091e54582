package multidocs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/logfields"
	"git.home.luguber.info/inful/multidocs/internal/metrics"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
	"git.home.luguber.info/inful/multidocs/internal/webpack"
)

// Aggregator exposes the single-instance lifecycle surface on top of many
// instances. Its content type is Content[C], so a host resolving hooks with
// plugin.ResolveHooks[Content[C]] cannot tell it apart from one plugin.
type Aggregator[C any] struct {
	settings
	configs   []InstanceConfig
	instances []*Instance[C]
}

var (
	_ plugin.ThemePathProvider                       = (*Aggregator[struct{}])(nil)
	_ plugin.PathsToWatchProvider                    = (*Aggregator[struct{}])(nil)
	_ plugin.ClientModulesProvider                   = (*Aggregator[struct{}])(nil)
	_ plugin.ContentLoader[Content[struct{}]]        = (*Aggregator[struct{}])(nil)
	_ plugin.ContentLoadedHandler[Content[struct{}]] = (*Aggregator[struct{}])(nil)
	_ plugin.WebpackConfigurer                       = (*Aggregator[struct{}])(nil)
)

// New constructs every instance from configs and returns the aggregator
// owning them. It fails with a config-category error, before constructing
// anything, when configs is empty or IDs are missing or duplicated.
func New[C any](lc plugin.LoadContext, configs []InstanceConfig, factory plugin.Factory, opts ...Option) (*Aggregator[C], error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	instances, err := Construct[C](lc, configs, factory)
	if err != nil {
		return nil, err
	}
	if s.name == "" {
		s.name = instances[0].PluginName()
	}

	s.recorder.SetInstances(len(instances))
	s.logger.Debug("Constructed plugin instances",
		logfields.Plugin(s.name),
		logfields.Instances(len(instances)))

	return &Aggregator[C]{
		settings:  s,
		configs:   append([]InstanceConfig(nil), configs...),
		instances: instances,
	}, nil
}

// Name returns the plugin name reported to the host.
func (a *Aggregator[C]) Name() string {
	return a.name
}

// Instances returns the constructed instances in configuration order.
func (a *Aggregator[C]) Instances() []*Instance[C] {
	return append([]*Instance[C](nil), a.instances...)
}

// ThemePath returns the first instance's theme path. All instances are
// assumed to share one theme; an empty string means the first instance has
// no theme.
func (a *Aggregator[C]) ThemePath() string {
	if h := a.instances[0].hooks.ThemePath; h != nil {
		return h()
	}
	return ""
}

// PathsToWatch concatenates every instance's watch paths in configuration
// order. Duplicates are kept.
func (a *Aggregator[C]) PathsToWatch() []string {
	paths := []string{}
	for _, inst := range a.instances {
		if inst.hooks.PathsToWatch == nil {
			continue
		}
		paths = append(paths, inst.hooks.PathsToWatch()...)
	}
	return paths
}

// ClientModules returns the admonitions stylesheet when at least one
// configuration enables admonitions, and an empty list otherwise. Instances
// are not consulted.
func (a *Aggregator[C]) ClientModules() []string {
	for _, cfg := range a.configs {
		if cfg.Admonitions {
			return []string{a.admonitionsModule}
		}
	}
	return []string{}
}

// LoadContent calls LoadContent on every instance that implements it,
// concurrently, and returns the non-nil results tagged with their instance
// IDs in configuration order. Any failure fails the whole call.
func (a *Aggregator[C]) LoadContent(ctx context.Context) (*Content[C], error) {
	results := make([]*C, len(a.instances))

	var g errgroup.Group
	for i, inst := range a.instances {
		if inst.hooks.LoadContent == nil {
			continue
		}
		g.Go(func() error {
			return a.invoke(inst, plugin.HookLoadContent, func() error {
				c, err := inst.hooks.LoadContent(ctx)
				results[i] = c
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	content := make(Content[C], 0, len(results))
	for i, c := range results {
		inst := a.instances[i]
		if c == nil {
			if inst.hooks.LoadContent != nil {
				a.recorder.IncHookResult(string(plugin.HookLoadContent), inst.ID, metrics.ResultAbsent)
				a.logger.Debug("Instance returned no content", logfields.InstanceID(inst.ID))
			}
			continue
		}
		content = append(content, Tag(inst.ID, c))
	}
	return &content, nil
}

// ContentLoaded forwards each instance its own slice of content, matched by
// ID, together with the unchanged actions handle. Instances without a
// matching entry are skipped. Calls run concurrently; any failure fails the
// whole call.
func (a *Aggregator[C]) ContentLoaded(ctx context.Context, args plugin.ContentLoadedArgs[Content[C]]) error {
	if args.Content == nil {
		return nil
	}
	content := *args.Content

	var g errgroup.Group
	for _, inst := range a.instances {
		if inst.hooks.ContentLoaded == nil {
			continue
		}
		own, ok := content.Find(inst.ID)
		if !ok {
			a.recorder.IncHookResult(string(plugin.HookContentLoaded), inst.ID, metrics.ResultSkipped)
			a.logger.Debug("No loaded content for instance, skipping", logfields.InstanceID(inst.ID))
			continue
		}
		g.Go(func() error {
			return a.invoke(inst, plugin.HookContentLoaded, func() error {
				return inst.hooks.ContentLoaded(ctx, plugin.ContentLoadedArgs[C]{
					Content: own,
					Actions: args.Actions,
				})
			})
		})
	}
	return g.Wait()
}

// ConfigureWebpack calls ConfigureWebpack on each implementing instance in
// configuration order and deep-merges the returned fragments, starting from
// an empty object. The first failure aborts the fold.
func (a *Aggregator[C]) ConfigureWebpack(cfg plugin.WebpackConfig, isServer bool, utils plugin.WebpackUtils) (plugin.WebpackConfig, error) {
	fragments := make([]plugin.WebpackConfig, 0, len(a.instances))
	for _, inst := range a.instances {
		if inst.hooks.ConfigureWebpack == nil {
			continue
		}
		var fragment plugin.WebpackConfig
		err := a.invoke(inst, plugin.HookConfigureWebpack, func() error {
			var err error
			fragment, err = inst.hooks.ConfigureWebpack(cfg, isServer, utils)
			return err
		})
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}

	merged, err := webpack.MergeFragments(fragments...)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryPlugin, "merge webpack configuration").
			Fatal().
			Build()
	}
	return merged, nil
}

// invoke runs one hook call on inst, recording metrics and turning an error
// or panic into a classified plugin failure naming the instance and hook.
func (a *Aggregator[C]) invoke(inst *Instance[C], hook plugin.Hook, call func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		elapsed := time.Since(start)
		a.recorder.ObserveHookDuration(string(hook), inst.ID, elapsed)

		attrs := []any{
			logfields.InstanceID(inst.ID),
			logfields.Hook(string(hook)),
			logfields.DurationMS(float64(elapsed.Microseconds()) / 1000),
		}
		if err == nil {
			a.recorder.IncHookResult(string(hook), inst.ID, metrics.ResultSuccess)
			a.logger.Debug("Instance hook completed", attrs...)
			return
		}

		a.recorder.IncHookResult(string(hook), inst.ID, metrics.ResultFailed)
		a.logger.Error("Instance hook failed", append(attrs, logfields.Error(err))...)
		err = derrors.PluginFailure("plugin instance failed").
			WithCause(plugin.NewPluginError(inst.PluginName(), inst.ID, hook, err)).
			WithContext(logfields.KeyInstanceID, inst.ID).
			WithContext(logfields.KeyHook, string(hook)).
			Build()
	}()
	return call()
}
