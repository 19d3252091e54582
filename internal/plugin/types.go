package plugin

import "fmt"

// Hook identifies one lifecycle method of the plugin contract.
type Hook string

const (
	HookConstruct        Hook = "construct"
	HookThemePath        Hook = "theme_path"
	HookPathsToWatch     Hook = "paths_to_watch"
	HookClientModules    Hook = "client_modules"
	HookLoadContent      Hook = "load_content"
	HookContentLoaded    Hook = "content_loaded"
	HookConfigureWebpack Hook = "configure_webpack"
)

// String returns the string representation of the hook.
func (h Hook) String() string {
	return string(h)
}

// WebpackConfig is a bundler configuration tree (nested maps, slices and scalars).
type WebpackConfig map[string]any

// WebpackUtils carries build-mode details the host passes to ConfigureWebpack.
type WebpackUtils struct {
	// Production is true for production bundles.
	Production bool

	// CacheDir is the host's bundler cache directory.
	CacheDir string
}

// Route is a page route registered through Actions.AddRoute.
type Route struct {
	Path      string            `json:"path"`
	Component string            `json:"component"`
	Exact     bool              `json:"exact"`
	Modules   map[string]string `json:"modules,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// RouteMetaInstance is the Route.Metadata key naming the registering instance.
const RouteMetaInstance = "instance"

// Instance returns the instance ID recorded in the route metadata, if any.
func (r Route) Instance() string {
	id, _ := r.Metadata[RouteMetaInstance].(string)
	return id
}

// Actions is the host's side-effect handle passed to ContentLoaded.
// Implementations must be safe for concurrent use: an aggregator forwards the
// same handle to several instances at once.
type Actions interface {
	// AddRoute registers a page route.
	AddRoute(route Route)

	// CreateData writes a generated data file and returns the path modules
	// use to reference it.
	CreateData(name string, data []byte) (string, error)
}

// PluginError represents an error that occurred within one plugin instance.
type PluginError struct {
	// PluginName identifies which plugin failed.
	PluginName string

	// InstanceID identifies the configured instance, empty for single-instance use.
	InstanceID string

	// Hook is the lifecycle hook that failed.
	Hook Hook

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.PluginName == "" {
		return fmt.Sprintf("instance %q failed during %s: %v", e.InstanceID, e.Hook, e.Err)
	}
	if e.InstanceID == "" {
		return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Hook, e.Err)
	}
	return fmt.Sprintf("plugin %s (instance %q) failed during %s: %v", e.PluginName, e.InstanceID, e.Hook, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, instanceID string, hook Hook, err error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		InstanceID: instanceID,
		Hook:       hook,
		Err:        err,
	}
}
