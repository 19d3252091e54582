// Package plugin defines the lifecycle contract between the site build host and
// a documentation content plugin.
//
// Every lifecycle hook is optional. A plugin implements the base Plugin
// interface plus whichever capability interfaces it supports; the host (or an
// aggregator) resolves the capability set once with ResolveHooks and checks
// each hook for presence before invoking it.
package plugin

import (
	"context"
)

// Plugin is the minimal surface every content plugin exposes.
type Plugin interface {
	// Name returns the plugin's registered name (e.g. "content-docs").
	Name() string
}

// ThemePathProvider exposes the directory holding the plugin's theme components.
type ThemePathProvider interface {
	ThemePath() string
}

// PathsToWatchProvider exposes file globs the host should watch for rebuilds.
type PathsToWatchProvider interface {
	PathsToWatch() []string
}

// ClientModulesProvider exposes modules the host bundles into the client.
type ClientModulesProvider interface {
	ClientModules() []string
}

// ContentLoader loads the plugin's content. A nil result with a nil error means
// the plugin has no content for this build.
type ContentLoader[C any] interface {
	LoadContent(ctx context.Context) (*C, error)
}

// ContentLoadedHandler applies previously loaded content through the host's
// side-effect handle (routes, generated data files).
type ContentLoadedHandler[C any] interface {
	ContentLoaded(ctx context.Context, args ContentLoadedArgs[C]) error
}

// ContentLoadedArgs carries the loaded content and the host actions into
// ContentLoaded.
type ContentLoadedArgs[C any] struct {
	Content *C
	Actions Actions
}

// WebpackConfigurer returns a bundler configuration fragment that the host
// merges into its own configuration. The cfg argument is the host's current
// configuration and must be treated as read-only.
type WebpackConfigurer interface {
	ConfigureWebpack(cfg WebpackConfig, isServer bool, utils WebpackUtils) (WebpackConfig, error)
}

// Hooks is the resolved capability set of a plugin. A nil field means the
// plugin does not implement that hook.
type Hooks[C any] struct {
	ThemePath        func() string
	PathsToWatch     func() []string
	ClientModules    func() []string
	LoadContent      func(ctx context.Context) (*C, error)
	ContentLoaded    func(ctx context.Context, args ContentLoadedArgs[C]) error
	ConfigureWebpack func(cfg WebpackConfig, isServer bool, utils WebpackUtils) (WebpackConfig, error)
}

// ResolveHooks inspects p once and returns the hooks it implements for content type C.
func ResolveHooks[C any](p Plugin) Hooks[C] {
	var h Hooks[C]
	if p == nil {
		return h
	}
	if v, ok := p.(ThemePathProvider); ok {
		h.ThemePath = v.ThemePath
	}
	if v, ok := p.(PathsToWatchProvider); ok {
		h.PathsToWatch = v.PathsToWatch
	}
	if v, ok := p.(ClientModulesProvider); ok {
		h.ClientModules = v.ClientModules
	}
	if v, ok := p.(ContentLoader[C]); ok {
		h.LoadContent = v.LoadContent
	}
	if v, ok := p.(ContentLoadedHandler[C]); ok {
		h.ContentLoaded = v.ContentLoaded
	}
	if v, ok := p.(WebpackConfigurer); ok {
		h.ConfigureWebpack = v.ConfigureWebpack
	}
	return h
}

// Names lists the implemented hooks in lifecycle order.
func (h Hooks[C]) Names() []Hook {
	var names []Hook
	if h.ThemePath != nil {
		names = append(names, HookThemePath)
	}
	if h.PathsToWatch != nil {
		names = append(names, HookPathsToWatch)
	}
	if h.ClientModules != nil {
		names = append(names, HookClientModules)
	}
	if h.LoadContent != nil {
		names = append(names, HookLoadContent)
	}
	if h.ContentLoaded != nil {
		names = append(names, HookContentLoaded)
	}
	if h.ConfigureWebpack != nil {
		names = append(names, HookConfigureWebpack)
	}
	return names
}

// Factory constructs one plugin instance from the host's load context and the
// instance's options.
type Factory func(lc LoadContext, opts Options) (Plugin, error)
