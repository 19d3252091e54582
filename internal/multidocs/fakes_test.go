package multidocs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/inful/multidocs/internal/metrics"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// docSet is the content type the fake instances load.
type docSet struct {
	Docs []string
}

// bareInstance implements no optional hooks.
type bareInstance struct {
	id string
}

func (b *bareInstance) Name() string { return "content-docs" }

// docsInstance implements every hook with configurable behavior.
type docsInstance struct {
	id      string
	opts    plugin.Options
	theme   string
	paths   []string
	content *docSet
	loadErr error
	delay   time.Duration
	panics  bool
	onLoad  func(ctx context.Context) error

	webpack    plugin.WebpackConfig
	webpackErr error

	mu           sync.Mutex
	loadCalls    int
	loadedCalls  []*docSet
	actionsSeen  []plugin.Actions
	webpackCalls int
}

func (d *docsInstance) Name() string { return "content-docs" }

func (d *docsInstance) ThemePath() string { return d.theme }

func (d *docsInstance) PathsToWatch() []string { return d.paths }

func (d *docsInstance) LoadContent(ctx context.Context) (*docSet, error) {
	d.mu.Lock()
	d.loadCalls++
	d.mu.Unlock()

	if d.panics {
		panic("instance exploded")
	}
	if d.onLoad != nil {
		if err := d.onLoad(ctx); err != nil {
			return nil, err
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	return d.content, nil
}

func (d *docsInstance) ContentLoaded(_ context.Context, args plugin.ContentLoadedArgs[docSet]) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadedCalls = append(d.loadedCalls, args.Content)
	d.actionsSeen = append(d.actionsSeen, args.Actions)
	return d.loadErr
}

func (d *docsInstance) ConfigureWebpack(plugin.WebpackConfig, bool, plugin.WebpackUtils) (plugin.WebpackConfig, error) {
	d.mu.Lock()
	d.webpackCalls++
	d.mu.Unlock()
	return d.webpack, d.webpackErr
}

func (d *docsInstance) calls() (load int, loaded []*docSet, webpack int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadCalls, append([]*docSet(nil), d.loadedCalls...), d.webpackCalls
}

// fixture builds a factory that hands out pre-built plugins by instance ID.
type fixture struct {
	mu       sync.Mutex
	plugins  map[string]plugin.Plugin
	received []plugin.Options
}

func newFixture(plugins ...plugin.Plugin) *fixture {
	f := &fixture{plugins: map[string]plugin.Plugin{}}
	for _, p := range plugins {
		switch v := p.(type) {
		case *docsInstance:
			f.plugins[v.id] = v
		case *bareInstance:
			f.plugins[v.id] = v
		}
	}
	return f
}

func (f *fixture) factory(_ plugin.LoadContext, opts plugin.Options) (plugin.Plugin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, opts)

	id := opts.GetString(OptionID, "")
	p, ok := f.plugins[id]
	if !ok {
		return nil, fmt.Errorf("no fake plugin for %q", id)
	}
	if d, ok := p.(*docsInstance); ok {
		d.opts = opts
	}
	return p, nil
}

func configs(ids ...string) []InstanceConfig {
	out := make([]InstanceConfig, len(ids))
	for i, id := range ids {
		out[i] = InstanceConfig{ID: id, Options: plugin.Options{"path": "docs/" + id}}
	}
	return out
}

// fakeActions is a host side-effect handle that records routes.
type fakeActions struct {
	mu     sync.Mutex
	routes []plugin.Route
}

func (a *fakeActions) AddRoute(r plugin.Route) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, r)
}

func (a *fakeActions) CreateData(name string, _ []byte) (string, error) {
	return "/data/" + name, nil
}

// countingRecorder counts hook results per hook/instance/result.
type countingRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	results   map[string]int
	instances int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{results: map[string]int{}}
}

func (r *countingRecorder) IncHookResult(hook, instance string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[hook+"/"+instance+"/"+string(result)]++
}

func (r *countingRecorder) SetInstances(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = n
}

func (r *countingRecorder) count(hook plugin.Hook, instance string, result metrics.ResultLabel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[string(hook)+"/"+instance+"/"+string(result)]
}
