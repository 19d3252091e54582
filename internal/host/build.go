package host

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/multidocs/internal/config"
	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/logfields"
	"git.home.luguber.info/inful/multidocs/internal/metrics"
	"git.home.luguber.info/inful/multidocs/internal/multidocs"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// Output file names written to the site output directory.
const (
	RoutesFile        = "routes.json"
	ClientModulesFile = "client-modules.json"
	WebpackClientFile = "webpack.client.json"
	WebpackServerFile = "webpack.server.json"
	dataDirName       = "data"
	cacheDirName      = "cache"
)

// Result summarizes one build session.
type Result struct {
	BuildID       string         `json:"buildId"`
	Plugin        string         `json:"plugin"`
	Instances     []string       `json:"instances"`
	Loaded        []string       `json:"loaded"`
	ThemePath     string         `json:"themePath,omitempty"`
	PathsToWatch  []string       `json:"pathsToWatch"`
	ClientModules []string       `json:"clientModules"`
	Routes        []plugin.Route `json:"routes"`
	DataModules   []string       `json:"dataModules"`
	Duration      time.Duration  `json:"duration"`
}

// InstanceInfo describes one constructed instance.
type InstanceInfo struct {
	ID     string        `json:"id"`
	Plugin string        `json:"plugin"`
	Hooks  []plugin.Hook `json:"hooks"`
}

// Inspection describes the aggregated plugin without running content hooks.
type Inspection struct {
	Plugin        string         `json:"plugin"`
	ThemePath     string         `json:"themePath,omitempty"`
	PathsToWatch  []string       `json:"pathsToWatch"`
	ClientModules []string       `json:"clientModules"`
	Instances     []InstanceInfo `json:"instances"`
}

// Pipeline runs sessions for plugins whose instances load content of type C.
type Pipeline[C any] struct {
	registry   *plugin.Registry
	logger     *slog.Logger
	recorder   metrics.Recorder
	production bool
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*pipelineSettings)

type pipelineSettings struct {
	logger     *slog.Logger
	recorder   metrics.Recorder
	production bool
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(s *pipelineSettings) { s.logger = logger }
}

// WithRecorder sets the metrics recorder shared with the aggregator.
func WithRecorder(r metrics.Recorder) PipelineOption {
	return func(s *pipelineSettings) { s.recorder = r }
}

// WithProduction marks bundles as production builds.
func WithProduction(production bool) PipelineOption {
	return func(s *pipelineSettings) { s.production = production }
}

// NewPipeline returns a pipeline resolving plugin factories from registry.
func NewPipeline[C any](registry *plugin.Registry, opts ...PipelineOption) *Pipeline[C] {
	s := pipelineSettings{
		logger:   slog.New(slog.DiscardHandler),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	return &Pipeline[C]{
		registry:   registry,
		logger:     s.logger,
		recorder:   s.recorder,
		production: s.production,
	}
}

func (p *Pipeline[C]) aggregate(lc plugin.LoadContext, cfg *config.Config) (*multidocs.Aggregator[C], error) {
	factory, err := p.registry.Get(cfg.Plugin)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryNotFound, "unknown plugin").
			WithContext(logfields.KeyPlugin, cfg.Plugin).
			Build()
	}
	return multidocs.New[C](lc, cfg.Instances, factory,
		multidocs.WithLogger(lc.Logger),
		multidocs.WithRecorder(p.recorder))
}

// Inspect constructs the instances and reports their capabilities.
func (p *Pipeline[C]) Inspect(cfg *config.Config) (*Inspection, error) {
	lc := cfg.LoadContext(p.logger)
	agg, err := p.aggregate(lc, cfg)
	if err != nil {
		return nil, err
	}

	out := &Inspection{
		Plugin:        agg.Name(),
		ThemePath:     agg.ThemePath(),
		PathsToWatch:  agg.PathsToWatch(),
		ClientModules: agg.ClientModules(),
	}
	for _, inst := range agg.Instances() {
		out.Instances = append(out.Instances, InstanceInfo{
			ID:     inst.ID,
			Plugin: inst.PluginName(),
			Hooks:  inst.Hooks(),
		})
	}
	return out, nil
}

// Build runs one full session: construct, load, publish content, configure
// client and server bundles, then write the outputs.
func (p *Pipeline[C]) Build(ctx context.Context, cfg *config.Config) (res *Result, err error) {
	start := time.Now()
	lc := cfg.LoadContext(p.logger)
	log := lc.Logger.With(logfields.BuildID(lc.BuildID))
	lc.Logger = log

	defer func() {
		elapsed := time.Since(start)
		p.recorder.ObserveBuildDuration(elapsed, err == nil)
		if err != nil {
			log.Error("Build failed", logfields.Error(err))
			return
		}
		res.Duration = elapsed
		log.Info("Build completed",
			logfields.Instances(len(res.Instances)),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	}()

	agg, err := p.aggregate(lc, cfg)
	if err != nil {
		return nil, err
	}
	// The host sees one plugin whose content is the tagged list.
	hooks := plugin.ResolveHooks[multidocs.Content[C]](agg)

	res = &Result{
		BuildID:       lc.BuildID,
		Plugin:        agg.Name(),
		ThemePath:     agg.ThemePath(),
		PathsToWatch:  agg.PathsToWatch(),
		ClientModules: agg.ClientModules(),
	}
	for _, inst := range agg.Instances() {
		res.Instances = append(res.Instances, inst.ID)
	}

	content, err := hooks.LoadContent(ctx)
	if err != nil {
		return nil, err
	}
	if content != nil {
		res.Loaded = content.IDs()
	}

	dataDir := filepath.Join(lc.GeneratedFilesDir, dataDirName)
	if err := os.RemoveAll(dataDir); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "clean data directory").
			WithContext(logfields.KeyPath, dataDir).
			Build()
	}
	actions := NewActions(dataDir)
	if err := hooks.ContentLoaded(ctx, plugin.ContentLoadedArgs[multidocs.Content[C]]{Content: content, Actions: actions}); err != nil {
		return nil, err
	}
	res.Routes = actions.Routes()
	for _, c := range Conflicts(res.Routes) {
		p.logger.Warn("Route registered by more than one instance",
			logfields.Route(c.Path), slog.Any("instances", c.Instances))
	}
	res.DataModules = actions.DataModules()

	utils := plugin.WebpackUtils{
		Production: p.production,
		CacheDir:   filepath.Join(lc.GeneratedFilesDir, cacheDirName),
	}
	client, err := hooks.ConfigureWebpack(plugin.WebpackConfig{}, false, utils)
	if err != nil {
		return nil, err
	}
	server, err := hooks.ConfigureWebpack(plugin.WebpackConfig{}, true, utils)
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{
		RoutesFile:        res.Routes,
		ClientModulesFile: res.ClientModules,
		WebpackClientFile: client,
		WebpackServerFile: server,
	}
	for name, v := range outputs {
		if err := writeJSON(filepath.Join(lc.OutDir, name), v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func writeJSON(target string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryBuild, "encode output").
			WithContext(logfields.KeyPath, target).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "create output directory").
			WithContext(logfields.KeyPath, filepath.Dir(target)).
			Build()
	}
	if err := os.WriteFile(target, append(data, '\n'), 0o600); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "write output").
			WithContext(logfields.KeyPath, target).
			Build()
	}
	return nil
}

// ReadRoutes loads a routes file written by Build.
func ReadRoutes(outDir string) ([]plugin.Route, error) {
	data, err := os.ReadFile(filepath.Join(outDir, RoutesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, derrors.NotFoundError("no routes file; run a build first").
			WithContext(logfields.KeyPath, outDir).
			Build()
	}
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read routes").Build()
	}
	var routes []plugin.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryBuild, "decode routes").Build()
	}
	return routes, nil
}
