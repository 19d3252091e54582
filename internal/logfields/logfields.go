package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPlugin     = "plugin"
	KeyInstanceID = "instance_id"
	KeyHook       = "hook"
	KeyInstances  = "instances"
	KeyBuildID    = "build_id"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyRoute      = "route"
	KeyDocs       = "docs"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Plugin(name string) slog.Attr     { return slog.String(KeyPlugin, name) }
func InstanceID(id string) slog.Attr   { return slog.String(KeyInstanceID, id) }
func Hook(h string) slog.Attr          { return slog.String(KeyHook, h) }
func Instances(n int) slog.Attr        { return slog.Int(KeyInstances, n) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Route(r string) slog.Attr         { return slog.String(KeyRoute, r) }
func Docs(n int) slog.Attr             { return slog.Int(KeyDocs, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
