package multidocs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/metrics"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

func newAggregator(t *testing.T, cfgs []InstanceConfig, plugins []plugin.Plugin, opts ...Option) *Aggregator[docSet] {
	t.Helper()
	lc := plugin.NewLoadContext("/site", "/site/build", "", "/", nil)
	agg, err := New[docSet](lc, cfgs, newFixture(plugins...).factory, opts...)
	require.NoError(t, err)
	return agg
}

func TestNew(t *testing.T) {
	t.Run("empty configuration fails", func(t *testing.T) {
		lc := plugin.NewLoadContext("/site", "/site/build", "", "/", nil)
		agg, err := New[docSet](lc, []InstanceConfig{}, newFixture().factory)
		require.Error(t, err)
		assert.Nil(t, agg)
		assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
	})

	t.Run("reports underlying plugin name", func(t *testing.T) {
		agg := newAggregator(t, configs("api"), []plugin.Plugin{&docsInstance{id: "api"}})
		assert.Equal(t, "content-docs", agg.Name())
	})

	t.Run("name override", func(t *testing.T) {
		agg := newAggregator(t, configs("api"), []plugin.Plugin{&docsInstance{id: "api"}}, WithName("multi-docs"))
		assert.Equal(t, "multi-docs", agg.Name())
	})

	t.Run("records instance count", func(t *testing.T) {
		rec := newCountingRecorder()
		newAggregator(t, configs("api", "guides"),
			[]plugin.Plugin{&docsInstance{id: "api"}, &bareInstance{id: "guides"}},
			WithRecorder(rec))
		assert.Equal(t, 2, rec.instances)
	})

	t.Run("instances listing is a copy", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"),
			[]plugin.Plugin{&docsInstance{id: "api"}, &bareInstance{id: "guides"}})
		list := agg.Instances()
		list[0] = nil
		assert.NotNil(t, agg.Instances()[0])
	})

	t.Run("aggregator satisfies the single-plugin contract", func(t *testing.T) {
		agg := newAggregator(t, configs("api"), []plugin.Plugin{&docsInstance{id: "api"}})
		hooks := plugin.ResolveHooks[Content[docSet]](agg)
		assert.Len(t, hooks.Names(), 6)
	})
}

func TestThemePath(t *testing.T) {
	t.Run("first instance wins and reads are idempotent", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"), []plugin.Plugin{
			&docsInstance{id: "api", theme: "/themes/api"},
			&docsInstance{id: "guides", theme: "/themes/guides"},
		})
		assert.Equal(t, "/themes/api", agg.ThemePath())
		assert.Equal(t, "/themes/api", agg.ThemePath())
	})

	t.Run("first instance without hook", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"), []plugin.Plugin{
			&bareInstance{id: "api"},
			&docsInstance{id: "guides", theme: "/themes/guides"},
		})
		assert.Equal(t, "", agg.ThemePath())
	})
}

func TestPathsToWatch(t *testing.T) {
	t.Run("concatenates in configuration order", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides", "blog"), []plugin.Plugin{
			&docsInstance{id: "api", paths: []string{"a", "b"}},
			&bareInstance{id: "guides"},
			&docsInstance{id: "blog", paths: []string{"c"}},
		})
		assert.Equal(t, []string{"a", "b", "c"}, agg.PathsToWatch())
	})

	t.Run("duplicates are kept", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"), []plugin.Plugin{
			&docsInstance{id: "api", paths: []string{"shared/**"}},
			&docsInstance{id: "guides", paths: []string{"shared/**"}},
		})
		assert.Equal(t, []string{"shared/**", "shared/**"}, agg.PathsToWatch())
	})

	t.Run("no implementing instances", func(t *testing.T) {
		agg := newAggregator(t, configs("api"), []plugin.Plugin{&bareInstance{id: "api"}})
		paths := agg.PathsToWatch()
		assert.NotNil(t, paths)
		assert.Empty(t, paths)
	})
}

func TestClientModules(t *testing.T) {
	plugins := []plugin.Plugin{&bareInstance{id: "api"}, &bareInstance{id: "guides"}}

	t.Run("none enabled", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"), plugins)
		modules := agg.ClientModules()
		assert.NotNil(t, modules)
		assert.Empty(t, modules)
	})

	t.Run("one enabled", func(t *testing.T) {
		cfgs := configs("api", "guides")
		cfgs[1].Admonitions = true
		agg := newAggregator(t, cfgs, plugins)
		assert.Equal(t, []string{AdmonitionsStylesheet}, agg.ClientModules())
	})

	t.Run("all enabled yields one module", func(t *testing.T) {
		cfgs := configs("api", "guides")
		cfgs[0].Admonitions = true
		cfgs[1].Admonitions = true
		agg := newAggregator(t, cfgs, plugins)
		assert.Equal(t, []string{AdmonitionsStylesheet}, agg.ClientModules())
	})

	t.Run("custom module path", func(t *testing.T) {
		cfgs := configs("api", "guides")
		cfgs[0].Admonitions = true
		agg := newAggregator(t, cfgs, plugins, WithAdmonitionsModule("/theme/admonitions.css"))
		assert.Equal(t, []string{"/theme/admonitions.css"}, agg.ClientModules())
	})
}

func TestLoadContent(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("absent results are dropped", func(t *testing.T) {
		x := &docsInstance{id: "x", content: &docSet{Docs: []string{"intro", "setup"}}}
		y := &docsInstance{id: "y"}
		rec := newCountingRecorder()
		agg := newAggregator(t, configs("x", "y"), []plugin.Plugin{x, y}, WithRecorder(rec))

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)
		require.NotNil(t, content)
		require.Len(t, *content, 1)
		assert.Equal(t, "x", (*content)[0].ID)
		assert.Same(t, x.content, (*content)[0].Value)

		assert.Equal(t, 1, rec.count(plugin.HookLoadContent, "y", metrics.ResultAbsent))
		assert.Equal(t, 1, rec.count(plugin.HookLoadContent, "x", metrics.ResultSuccess))
	})

	t.Run("instances without the hook are not called", func(t *testing.T) {
		x := &docsInstance{id: "x", content: &docSet{}}
		agg := newAggregator(t, configs("bare", "x"), []plugin.Plugin{&bareInstance{id: "bare"}, x})

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, content.IDs())
	})

	t.Run("order follows configuration, not completion", func(t *testing.T) {
		slow := &docsInstance{id: "slow", content: &docSet{Docs: []string{"s"}}, delay: 30 * time.Millisecond}
		fast := &docsInstance{id: "fast", content: &docSet{Docs: []string{"f"}}}
		agg := newAggregator(t, configs("slow", "fast"), []plugin.Plugin{slow, fast})

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"slow", "fast"}, content.IDs())
	})

	t.Run("all sub-calls are issued before any is awaited", func(t *testing.T) {
		const n = 4
		var started sync.WaitGroup
		started.Add(n)
		allStarted := make(chan struct{})
		go func() {
			started.Wait()
			close(allStarted)
		}()

		barrier := func(context.Context) error {
			started.Done()
			select {
			case <-allStarted:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("sub-calls were not overlapped")
			}
		}

		ids := []string{"a", "b", "c", "d"}
		var plugins []plugin.Plugin
		for _, id := range ids {
			plugins = append(plugins, &docsInstance{id: id, content: &docSet{}, onLoad: barrier})
		}
		agg := newAggregator(t, configs(ids...), plugins)

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ids, content.IDs())
	})

	t.Run("one failure fails the call without cancelling the others", func(t *testing.T) {
		boom := errors.New("docs dir unreadable")
		var finished atomic.Bool

		failing := &docsInstance{id: "broken", loadErr: boom}
		slow := &docsInstance{id: "slow", content: &docSet{}, onLoad: func(ctx context.Context) error {
			time.Sleep(30 * time.Millisecond)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			finished.Store(true)
			return nil
		}}
		agg := newAggregator(t, configs("broken", "slow"), []plugin.Plugin{failing, slow})

		content, err := agg.LoadContent(context.Background())
		require.Error(t, err)
		assert.Nil(t, content)
		assert.True(t, finished.Load(), "the join waits for every sub-call")

		assert.ErrorIs(t, err, boom)
		assert.True(t, derrors.HasCategory(err, derrors.CategoryPlugin))
		classified, ok := derrors.AsClassified(err)
		require.True(t, ok)
		assert.True(t, classified.IsFatal())

		var pe *plugin.PluginError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "broken", pe.InstanceID)
		assert.Equal(t, plugin.HookLoadContent, pe.Hook)
	})

	t.Run("panics become instance failures", func(t *testing.T) {
		agg := newAggregator(t, configs("api", "guides"), []plugin.Plugin{
			&docsInstance{id: "api", content: &docSet{}},
			&docsInstance{id: "guides", panics: true},
		})

		_, err := agg.LoadContent(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instance exploded")

		var pe *plugin.PluginError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "guides", pe.InstanceID)
	})
}

func TestContentLoaded(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("each instance receives only its own content", func(t *testing.T) {
		x := &docsInstance{id: "x", content: &docSet{Docs: []string{"intro"}}}
		y := &docsInstance{id: "y"}
		agg := newAggregator(t, configs("x", "y"), []plugin.Plugin{x, y})

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)

		actions := &fakeActions{}
		err = agg.ContentLoaded(context.Background(), plugin.ContentLoadedArgs[Content[docSet]]{
			Content: content,
			Actions: actions,
		})
		require.NoError(t, err)

		_, xLoaded, _ := x.calls()
		require.Len(t, xLoaded, 1)
		assert.Same(t, x.content, xLoaded[0])
		assert.Same(t, actions, x.actionsSeen[0].(*fakeActions))

		_, yLoaded, _ := y.calls()
		assert.Empty(t, yLoaded, "instances without content are skipped")
	})

	t.Run("content tagged for unknown ids is ignored", func(t *testing.T) {
		x := &docsInstance{id: "x"}
		agg := newAggregator(t, configs("x"), []plugin.Plugin{x})

		content := Content[docSet]{Tag("other", &docSet{})}
		err := agg.ContentLoaded(context.Background(), plugin.ContentLoadedArgs[Content[docSet]]{Content: &content})
		require.NoError(t, err)

		_, loaded, _ := x.calls()
		assert.Empty(t, loaded)
	})

	t.Run("nil content is a no-op", func(t *testing.T) {
		x := &docsInstance{id: "x"}
		agg := newAggregator(t, configs("x"), []plugin.Plugin{x})

		require.NoError(t, agg.ContentLoaded(context.Background(), plugin.ContentLoadedArgs[Content[docSet]]{}))
		_, loaded, _ := x.calls()
		assert.Empty(t, loaded)
	})

	t.Run("skips are logged at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		rec := newCountingRecorder()

		agg := newAggregator(t, configs("x", "y"), []plugin.Plugin{
			&docsInstance{id: "x", content: &docSet{}},
			&docsInstance{id: "y"},
		}, WithLogger(logger), WithRecorder(rec))

		content, err := agg.LoadContent(context.Background())
		require.NoError(t, err)
		require.NoError(t, agg.ContentLoaded(context.Background(), plugin.ContentLoadedArgs[Content[docSet]]{Content: content}))

		assert.Contains(t, buf.String(), "No loaded content for instance, skipping")
		assert.Contains(t, buf.String(), "instance_id=y")
		assert.Equal(t, 1, rec.count(plugin.HookContentLoaded, "y", metrics.ResultSkipped))
	})

	t.Run("failure propagates", func(t *testing.T) {
		boom := errors.New("route collision")
		x := &docsInstance{id: "x"}
		agg := newAggregator(t, configs("x"), []plugin.Plugin{x})
		content := Content[docSet]{Tag("x", &docSet{})}
		x.loadErr = boom

		err := agg.ContentLoaded(context.Background(), plugin.ContentLoadedArgs[Content[docSet]]{Content: &content})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		var pe *plugin.PluginError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, plugin.HookContentLoaded, pe.Hook)
	})
}

func TestConfigureWebpack(t *testing.T) {
	t.Run("fragments are deep merged in order", func(t *testing.T) {
		a := &docsInstance{id: "a", webpack: plugin.WebpackConfig{
			"module":  map[string]any{"rules": []any{"r1"}},
			"devtool": "source-map",
		}}
		b := &docsInstance{id: "b", webpack: plugin.WebpackConfig{
			"module": map[string]any{"rules": []any{"r2"}},
		}}
		agg := newAggregator(t, configs("a", "bare", "b"), []plugin.Plugin{a, &bareInstance{id: "bare"}, b})

		merged, err := agg.ConfigureWebpack(plugin.WebpackConfig{}, false, plugin.WebpackUtils{})
		require.NoError(t, err)

		assert.Equal(t, []any{"r1", "r2"}, merged["module"].(map[string]any)["rules"])
		assert.Equal(t, "source-map", merged["devtool"])
		assert.Equal(t, []any{"r1"}, a.webpack["module"].(map[string]any)["rules"], "fragments stay untouched")
	})

	t.Run("fragments built from typed values merge", func(t *testing.T) {
		aliasA := map[string]string{"@a": "/a"}
		a := &docsInstance{id: "a", webpack: plugin.WebpackConfig{
			"resolve": map[string]any{"alias": aliasA},
			"entry":   "./a.js",
		}}
		b := &docsInstance{id: "b", webpack: plugin.WebpackConfig{
			"resolve": map[string]any{"alias": map[string]any{"@b": "/b"}},
			"entry":   []string{"./b.js"},
		}}
		agg := newAggregator(t, configs("a", "b"), []plugin.Plugin{a, b})

		merged, err := agg.ConfigureWebpack(plugin.WebpackConfig{}, false, plugin.WebpackUtils{})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"alias": map[string]any{"@a": "/a", "@b": "/b"}}, merged["resolve"])
		assert.Equal(t, []any{"./b.js"}, merged["entry"])
		assert.Equal(t, map[string]string{"@a": "/a"}, aliasA, "fragments stay untouched")
	})

	t.Run("no fragments yields empty object", func(t *testing.T) {
		agg := newAggregator(t, configs("bare"), []plugin.Plugin{&bareInstance{id: "bare"}})
		merged, err := agg.ConfigureWebpack(nil, true, plugin.WebpackUtils{})
		require.NoError(t, err)
		assert.NotNil(t, merged)
		assert.Empty(t, merged)
	})

	t.Run("failure aborts the fold", func(t *testing.T) {
		boom := errors.New("bad alias")
		a := &docsInstance{id: "a", webpackErr: boom}
		b := &docsInstance{id: "b", webpack: plugin.WebpackConfig{"mode": "production"}}
		agg := newAggregator(t, configs("a", "b"), []plugin.Plugin{a, b})

		merged, err := agg.ConfigureWebpack(plugin.WebpackConfig{}, false, plugin.WebpackUtils{})
		require.Error(t, err)
		assert.Nil(t, merged)
		assert.ErrorIs(t, err, boom)

		_, _, bCalls := b.calls()
		assert.Zero(t, bCalls, "later instances are not called after a failure")
	})
}
