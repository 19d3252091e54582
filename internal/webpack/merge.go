// Package webpack merges bundler configuration fragments returned by plugin
// instances.
//
// MergeFragments is a pure left fold: objects merge recursively, arrays
// concatenate in fragment order, and scalars from later fragments replace
// earlier ones. When the same key holds values of different shapes (object,
// array or scalar) the later value replaces the earlier one. Fragments are
// never modified.
package webpack

import (
	"fmt"
	"reflect"

	"dario.cat/mergo"

	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// MergeFragments folds fragments in order into a new configuration, starting
// from an empty object. Nil fragments contribute nothing.
func MergeFragments(fragments ...plugin.WebpackConfig) (merged plugin.WebpackConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			merged, err = nil, fmt.Errorf("merge webpack fragments: %v", r)
		}
	}()

	merged = plugin.WebpackConfig{}
	for i, fragment := range fragments {
		if len(fragment) == 0 {
			continue
		}
		// mergo stores src values into dst by reference; merging a private copy
		// keeps later merges from writing through into an instance's fragment.
		src := cloneMap(fragment)
		dropShapeConflicts(merged, src)
		if err := mergo.Merge(&merged, plugin.WebpackConfig(src), mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, fmt.Errorf("merge webpack fragment %d: %w", i, err)
		}
	}
	return merged, nil
}

type shape int

const (
	shapeScalar shape = iota
	shapeObject
	shapeList
)

// shapeOf classifies a normalized value.
func shapeOf(v any) shape {
	switch v.(type) {
	case map[string]any:
		return shapeObject
	case []any:
		return shapeList
	default:
		return shapeScalar
	}
}

// dropShapeConflicts removes keys from dst whose value has a different shape
// than the incoming value in src, so the merge stores the later value
// instead of combining the two. Nested objects are reconciled recursively.
func dropShapeConflicts(dst, src map[string]any) {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			continue
		}
		ds := shapeOf(dv)
		if ds != shapeOf(sv) {
			delete(dst, k)
			continue
		}
		if ds == shapeObject {
			dropShapeConflicts(dv.(map[string]any), sv.(map[string]any))
		}
	}
}

// cloneMap deep-copies a configuration tree, normalizing nested maps to
// map[string]any and lists to []any so fragments built with different Go
// types still merge.
func cloneMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return cloneMap(t)
	case plugin.WebpackConfig:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case string, bool, int, int64, float64:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = cloneValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = cloneValue(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
