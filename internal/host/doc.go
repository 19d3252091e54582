// Package host drives build sessions against an aggregated plugin. It plays
// the role of the site generator: it owns the side-effect handle instances
// write through, calls the lifecycle hooks in order and writes the results to
// the output directory. Watcher reruns sessions when watched files change.
package host
