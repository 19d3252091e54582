package plugin

import (
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

// LoadContext describes the site being built. The host creates one per build
// session and hands the same value to every plugin factory.
type LoadContext struct {
	// SiteDir is the root directory of the site sources.
	SiteDir string

	// OutDir is where the host writes build output.
	OutDir string

	// GeneratedFilesDir is where plugins write generated data files.
	GeneratedFilesDir string

	// BaseURL is the URL prefix every route is served under.
	BaseURL string

	// SiteTitle is the human-readable site title.
	SiteTitle string

	// BuildID uniquely identifies this build session.
	BuildID string

	// Logger provides structured logging for plugin operations.
	Logger *slog.Logger
}

// NewLoadContext creates a load context with a fresh build ID.
func NewLoadContext(siteDir, outDir, generatedFilesDir, baseURL string, logger *slog.Logger) LoadContext {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if generatedFilesDir == "" {
		generatedFilesDir = filepath.Join(siteDir, ".multidocs")
	}
	return LoadContext{
		SiteDir:           siteDir,
		OutDir:            outDir,
		GeneratedFilesDir: generatedFilesDir,
		BaseURL:           baseURL,
		BuildID:           uuid.NewString(),
		Logger:            logger,
	}
}

// PluginDataDir returns the generated-files directory reserved for one plugin instance.
func (lc LoadContext) PluginDataDir(pluginName, instanceID string) string {
	if instanceID == "" {
		instanceID = "default"
	}
	return filepath.Join(lc.GeneratedFilesDir, pluginName, instanceID)
}

// Options is the opaque option bag a plugin factory receives.
type Options map[string]any

// Clone returns a shallow copy of the options.
func (o Options) Clone() Options {
	out := make(Options, len(o)+2)
	for k, v := range o {
		out[k] = v
	}
	return out
}

// GetString retrieves a string option.
// Returns def if the key doesn't exist or is not a string.
func (o Options) GetString(key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

// GetBool retrieves a boolean option.
// Returns false if the key doesn't exist or is not a boolean.
func (o Options) GetBool(key string) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return false
}

// GetStrings retrieves a string list option. YAML decodes lists as []any, so
// both []string and []any with string elements are accepted.
func (o Options) GetStrings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
