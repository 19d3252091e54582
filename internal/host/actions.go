package host

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// DataModulePrefix prefixes the module paths CreateData returns.
const DataModulePrefix = "@generated/"

// Actions is the host side-effect handle. It is safe for concurrent use by
// instances running ContentLoaded in parallel.
type Actions struct {
	dataDir string

	mu     sync.Mutex
	routes []plugin.Route
	data   []string
}

var _ plugin.Actions = (*Actions)(nil)

// NewActions returns a handle writing data modules below dataDir.
func NewActions(dataDir string) *Actions {
	return &Actions{dataDir: dataDir}
}

// AddRoute records a route.
func (a *Actions) AddRoute(r plugin.Route) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, r)
}

// CreateData writes data to name below the data directory and returns the
// module path routes refer to it by.
func (a *Actions) CreateData(name string, data []byte) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", derrors.ValidationError("data module name must be a relative path inside the data directory").
			WithContext("name", name).
			Build()
	}

	target := filepath.Join(a.dataDir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "create data directory").
			WithContext("path", filepath.Dir(target)).
			Build()
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "write data module").
			WithContext("path", target).
			Build()
	}

	a.mu.Lock()
	a.data = append(a.data, filepath.ToSlash(clean))
	a.mu.Unlock()
	return DataModulePrefix + filepath.ToSlash(clean), nil
}

// Routes returns the recorded routes sorted by path, then by registering
// instance and component. Instances register routes concurrently, so
// insertion order carries no meaning.
func (a *Actions) Routes() []plugin.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	routes := slices.Clone(a.routes)
	slices.SortStableFunc(routes, func(x, y plugin.Route) int {
		return cmp.Or(
			strings.Compare(x.Path, y.Path),
			strings.Compare(x.Instance(), y.Instance()),
			strings.Compare(x.Component, y.Component),
		)
	})
	return routes
}

// RouteConflict is a path registered by more than one instance.
type RouteConflict struct {
	Path      string
	Instances []string
}

// Conflicts reports paths that routes from different instances share, in path
// order. Repeated registrations by one instance are not conflicts.
func Conflicts(routes []plugin.Route) []RouteConflict {
	byPath := make(map[string][]string)
	var paths []string
	for _, r := range routes {
		ids, seen := byPath[r.Path]
		if !seen {
			paths = append(paths, r.Path)
		}
		if !slices.Contains(ids, r.Instance()) {
			byPath[r.Path] = append(ids, r.Instance())
		}
	}
	slices.Sort(paths)

	var conflicts []RouteConflict
	for _, p := range paths {
		if ids := byPath[p]; len(ids) > 1 {
			slices.Sort(ids)
			conflicts = append(conflicts, RouteConflict{Path: p, Instances: ids})
		}
	}
	return conflicts
}

// DataModules returns the names of the written data modules, sorted.
func (a *Actions) DataModules() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := slices.Clone(a.data)
	slices.Sort(names)
	return names
}
