package plugin

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type page struct {
	Title string
}

type bareStub struct{}

func (bareStub) Name() string { return "bare" }

type fullStub struct {
	bareStub
	loaded *page
}

func (fullStub) ThemePath() string { return "/theme" }
func (fullStub) PathsToWatch() []string { return []string{"docs/**/*.md"} }
func (fullStub) ClientModules() []string { return []string{"styles.css"} }
func (s *fullStub) LoadContent(context.Context) (*page, error) {
	return &page{Title: "Intro"}, nil
}
func (s *fullStub) ContentLoaded(_ context.Context, args ContentLoadedArgs[page]) error {
	s.loaded = args.Content
	return nil
}
func (fullStub) ConfigureWebpack(WebpackConfig, bool, WebpackUtils) (WebpackConfig, error) {
	return WebpackConfig{"mode": "development"}, nil
}

// TestResolveHooks tests capability resolution for optional hooks.
func TestResolveHooks(t *testing.T) {
	t.Run("plugin without hooks", func(t *testing.T) {
		h := ResolveHooks[page](bareStub{})
		if len(h.Names()) != 0 {
			t.Errorf("expected no hooks, got %v", h.Names())
		}
	})

	t.Run("nil plugin", func(t *testing.T) {
		h := ResolveHooks[page](nil)
		if h.LoadContent != nil || h.ThemePath != nil {
			t.Error("expected empty hook set for nil plugin")
		}
	})

	t.Run("plugin with every hook", func(t *testing.T) {
		stub := &fullStub{}
		h := ResolveHooks[page](stub)

		want := []Hook{
			HookThemePath, HookPathsToWatch, HookClientModules,
			HookLoadContent, HookContentLoaded, HookConfigureWebpack,
		}
		if !slices.Equal(h.Names(), want) {
			t.Fatalf("expected hooks %v, got %v", want, h.Names())
		}

		if got := h.ThemePath(); got != "/theme" {
			t.Errorf("expected theme path /theme, got %s", got)
		}

		content, err := h.LoadContent(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := h.ContentLoaded(context.Background(), ContentLoadedArgs[page]{Content: content}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stub.loaded == nil || stub.loaded.Title != "Intro" {
			t.Errorf("expected content to reach the plugin, got %+v", stub.loaded)
		}
	})

	t.Run("content hooks are typed", func(t *testing.T) {
		h := ResolveHooks[string](&fullStub{})
		if h.LoadContent != nil || h.ContentLoaded != nil {
			t.Error("expected content hooks to be absent for a different content type")
		}
		if h.ThemePath == nil {
			t.Error("expected untyped hooks to resolve regardless of content type")
		}
	})
}

// TestPluginError tests error formatting and unwrapping.
func TestPluginError(t *testing.T) {
	cause := errors.New("disk full")

	err := NewPluginError("content-docs", "api", HookLoadContent, cause)
	if !errors.Is(err, cause) {
		t.Error("expected PluginError to unwrap to its cause")
	}
	want := `plugin content-docs (instance "api") failed during load_content: disk full`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	single := NewPluginError("content-docs", "", HookConfigureWebpack, cause)
	want = "plugin content-docs failed during configure_webpack: disk full"
	if single.Error() != want {
		t.Errorf("expected %q, got %q", want, single.Error())
	}

	unnamed := NewPluginError("", "api", HookConstruct, cause)
	want = `instance "api" failed during construct: disk full`
	if unnamed.Error() != want {
		t.Errorf("expected %q, got %q", want, unnamed.Error())
	}
}

// TestOptions tests typed option accessors.
func TestOptions(t *testing.T) {
	opts := Options{
		"path":     "docs",
		"enabled":  true,
		"include":  []any{"*.md", 3, "*.mdx"},
		"excludes": []string{"drafts/**"},
		"single":   "one",
		"empty":    "",
	}

	if got := opts.GetString("path", "x"); got != "docs" {
		t.Errorf("expected docs, got %s", got)
	}
	if got := opts.GetString("missing", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
	if got := opts.GetString("empty", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for empty string, got %s", got)
	}
	if !opts.GetBool("enabled") || opts.GetBool("path") {
		t.Error("unexpected GetBool result")
	}
	if got := opts.GetStrings("include"); !slices.Equal(got, []string{"*.md", "*.mdx"}) {
		t.Errorf("unexpected include list %v", got)
	}
	if got := opts.GetStrings("excludes"); !slices.Equal(got, []string{"drafts/**"}) {
		t.Errorf("unexpected excludes list %v", got)
	}
	if got := opts.GetStrings("single"); !slices.Equal(got, []string{"one"}) {
		t.Errorf("unexpected single list %v", got)
	}

	clone := opts.Clone()
	clone["path"] = "other"
	if opts["path"] != "docs" {
		t.Error("expected Clone to leave the original untouched")
	}
}

// TestLoadContext tests load context construction.
func TestLoadContext(t *testing.T) {
	lc := NewLoadContext("/site", "/site/build", "", "/", nil)
	if lc.BuildID == "" {
		t.Error("expected a build id")
	}
	if lc.Logger == nil {
		t.Error("expected a default logger")
	}
	if lc.GeneratedFilesDir != "/site/.multidocs" {
		t.Errorf("unexpected generated files dir %s", lc.GeneratedFilesDir)
	}
	if got := lc.PluginDataDir("content-docs", "api"); got != "/site/.multidocs/content-docs/api" {
		t.Errorf("unexpected plugin data dir %s", got)
	}
	if got := lc.PluginDataDir("content-docs", ""); got != "/site/.multidocs/content-docs/default" {
		t.Errorf("unexpected default plugin data dir %s", got)
	}

	other := NewLoadContext("/site", "/site/build", "", "/", nil)
	if other.BuildID == lc.BuildID {
		t.Error("expected distinct build ids per session")
	}
}
