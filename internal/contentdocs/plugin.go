// Package contentdocs is the single-instance documentation content plugin:
// it loads one directory of Markdown documents, renders them, builds a
// sidebar and registers one route per document.
package contentdocs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/logfields"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// Name is the registered plugin name.
const Name = "content-docs"

// Option keys understood by the plugin.
const (
	OptPath          = "path"
	OptRouteBasePath = "route_base_path"
	OptThemePath     = "theme_path"
	OptExtensions    = "extensions"
	OptShowDrafts    = "show_drafts"
)

const (
	defaultPath          = "docs"
	defaultRouteBasePath = "docs"

	docComponent     = "@theme/DocItem"
	docPageComponent = "@theme/DocPage"
)

var defaultExtensions = []string{".md", ".mdx"}

// Plugin serves one documentation directory.
type Plugin struct {
	instanceID    string
	docsDir       string
	routeBasePath string
	themePath     string
	extensions    []string
	showDrafts    bool
	baseURL       string
	logger        *slog.Logger
}

var (
	_ plugin.ThemePathProvider                   = (*Plugin)(nil)
	_ plugin.PathsToWatchProvider                = (*Plugin)(nil)
	_ plugin.ContentLoader[LoadedContent]        = (*Plugin)(nil)
	_ plugin.ContentLoadedHandler[LoadedContent] = (*Plugin)(nil)
	_ plugin.WebpackConfigurer                   = (*Plugin)(nil)
)

// New is the plugin.Factory for content-docs.
func New(lc plugin.LoadContext, opts plugin.Options) (plugin.Plugin, error) {
	return newPlugin(lc, opts)
}

func newPlugin(lc plugin.LoadContext, opts plugin.Options) (*Plugin, error) {
	docsDir := opts.GetString(OptPath, defaultPath)
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(lc.SiteDir, docsDir)
	}

	routeBasePath := strings.Trim(opts.GetString(OptRouteBasePath, defaultRouteBasePath), "/")
	if strings.Contains(routeBasePath, "..") {
		return nil, derrors.ValidationError("route_base_path must not contain '..'").
			WithContext(OptRouteBasePath, routeBasePath).
			Build()
	}

	themePath := opts.GetString(OptThemePath, filepath.Join(lc.SiteDir, "theme", Name))

	configured := opts.GetStrings(OptExtensions)
	if len(configured) == 0 {
		configured = defaultExtensions
	}
	extensions := make([]string, 0, len(configured))
	for _, ext := range configured {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, strings.ToLower(ext))
	}

	logger := lc.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	instanceID := opts.GetString("id", "")

	return &Plugin{
		instanceID:    instanceID,
		docsDir:       docsDir,
		routeBasePath: routeBasePath,
		themePath:     themePath,
		extensions:    extensions,
		showDrafts:    opts.GetBool(OptShowDrafts),
		baseURL:       lc.BaseURL,
		logger:        logger.With(logfields.Plugin(Name), logfields.InstanceID(instanceID)),
	}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return Name
}

// ThemePath returns the directory holding the docs theme components.
func (p *Plugin) ThemePath() string {
	return p.themePath
}

// PathsToWatch returns one recursive glob per document extension.
func (p *Plugin) PathsToWatch() []string {
	paths := make([]string, 0, len(p.extensions))
	for _, ext := range p.extensions {
		paths = append(paths, filepath.Join(p.docsDir, "**", "*"+ext))
	}
	return paths
}

// LoadContent reads and renders every document under the docs directory.
// It returns nil content when the directory holds no documents.
func (p *Plugin) LoadContent(ctx context.Context) (*LoadedContent, error) {
	info, err := os.Stat(p.docsDir)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "docs directory not readable").
			WithContext(logfields.KeyPath, p.docsDir).
			Build()
	}
	if !info.IsDir() {
		return nil, derrors.ConfigError("docs path is not a directory").
			WithContext(logfields.KeyPath, p.docsDir).
			Build()
	}

	docs, err := p.loadDocs(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		p.logger.Warn("No documents found", logfields.Path(p.docsDir))
		return nil, nil
	}

	p.logger.Info("Loaded documents", logfields.Docs(len(docs)), logfields.Path(p.docsDir))
	return &LoadedContent{
		InstanceID:    p.instanceID,
		RouteBasePath: p.routeBasePath,
		Docs:          docs,
		Sidebar:       buildSidebar(docs),
	}, nil
}

// ContentLoaded writes one data module per document plus the sidebar and
// registers the matching routes.
func (p *Plugin) ContentLoaded(ctx context.Context, args plugin.ContentLoadedArgs[LoadedContent]) error {
	if args.Content == nil {
		return nil
	}
	if args.Actions == nil {
		return derrors.InternalError("content loaded without actions").Build()
	}
	content := args.Content

	sidebarPath, err := createJSON(args.Actions, p.dataName("sidebar"), content.Sidebar)
	if err != nil {
		return err
	}

	for _, doc := range content.Docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		dataPath, err := createJSON(args.Actions, p.dataName("doc-"+sanitizeName(doc.ID)), doc)
		if err != nil {
			return err
		}
		args.Actions.AddRoute(plugin.Route{
			Path:      doc.Permalink,
			Component: docComponent,
			Exact:     true,
			Modules: map[string]string{
				"content": dataPath,
				"sidebar": sidebarPath,
			},
			Metadata: map[string]any{
				plugin.RouteMetaInstance: p.instanceID,
				"source":                 doc.Source,
				"fingerprint":            doc.Fingerprint,
			},
		})
		p.logger.Debug("Registered route", logfields.Route(doc.Permalink))
	}

	args.Actions.AddRoute(plugin.Route{
		Path:      p.basePermalink(),
		Component: docPageComponent,
		Modules:   map[string]string{"sidebar": sidebarPath},
		Metadata:  map[string]any{plugin.RouteMetaInstance: p.instanceID},
	})
	return nil
}

// ConfigureWebpack contributes an alias to the docs directory and a loader
// rule scoped to it.
func (p *Plugin) ConfigureWebpack(_ plugin.WebpackConfig, isServer bool, utils plugin.WebpackUtils) (plugin.WebpackConfig, error) {
	loader := map[string]any{"loader": "multidocs-markdown-loader"}
	options := map[string]any{"instance": p.instanceID, "server": isServer}
	if utils.CacheDir != "" {
		options["cacheDirectory"] = filepath.Join(utils.CacheDir, Name, p.aliasSuffix())
	}
	loader["options"] = options

	return plugin.WebpackConfig{
		"resolve": map[string]any{
			"alias": map[string]any{
				"@docs/" + p.aliasSuffix(): p.docsDir,
			},
		},
		"module": map[string]any{
			"rules": []any{
				map[string]any{
					"test":    extensionPattern(p.extensions),
					"include": []any{p.docsDir},
					"use":     []any{loader},
				},
			},
		},
	}, nil
}

func (p *Plugin) aliasSuffix() string {
	if p.instanceID == "" {
		return "default"
	}
	return p.instanceID
}

func (p *Plugin) dataName(name string) string {
	return path.Join(Name, p.aliasSuffix(), name+".json")
}

func (p *Plugin) basePermalink() string {
	return joinURL(p.baseURL, p.routeBasePath)
}

func extensionPattern(exts []string) string {
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = strings.ReplaceAll(strings.TrimPrefix(ext, "."), ".", `\.`)
	}
	return fmt.Sprintf(`\.(%s)$`, strings.Join(quoted, "|"))
}
