package multidocs

import (
	"fmt"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// Option keys the factory adds to every instance's options, so the underlying
// plugin sees a superset of what it was configured with.
const (
	OptionID          = "id"
	OptionAdmonitions = "admonitions"
)

// InstanceConfig configures one underlying plugin instance.
type InstanceConfig struct {
	// ID uniquely identifies the instance across the configuration list.
	ID string `yaml:"id" json:"id"`

	// Admonitions asks the host to ship the shared admonitions stylesheet.
	Admonitions bool `yaml:"admonitions" json:"admonitions"`

	// Options are passed to the underlying plugin factory.
	Options plugin.Options `yaml:"options" json:"options,omitempty"`
}

// pluginOptions returns the options handed to the factory: a copy of Options
// plus the instance ID and admonitions flag.
func (c InstanceConfig) pluginOptions() plugin.Options {
	opts := c.Options.Clone()
	opts[OptionID] = c.ID
	opts[OptionAdmonitions] = c.Admonitions
	return opts
}

// Instance is a constructed plugin tagged with the ID of its configuration.
type Instance[C any] struct {
	ID     string
	plugin plugin.Plugin
	hooks  plugin.Hooks[C]
}

// PluginName returns the underlying plugin's name.
func (i *Instance[C]) PluginName() string {
	return i.plugin.Name()
}

// Hooks returns the lifecycle hooks the instance implements.
func (i *Instance[C]) Hooks() []plugin.Hook {
	return i.hooks.Names()
}

// ValidateConfigs checks that configs is non-empty, that every ID is
// non-empty and unique, and that no Options key shadows a field the factory
// injects.
func ValidateConfigs(configs []InstanceConfig) error {
	if len(configs) == 0 {
		return derrors.ConfigError("no configurations provided").Build()
	}
	seen := make(map[string]int, len(configs))
	for i, cfg := range configs {
		if cfg.ID == "" {
			return derrors.ConfigError("instance id is required").
				WithContext("index", i).
				Build()
		}
		for _, key := range []string{OptionID, OptionAdmonitions} {
			if _, reserved := cfg.Options[key]; reserved {
				return derrors.ConfigError(fmt.Sprintf("option %q is reserved; set it on the instance instead", key)).
					WithContext("instance_id", cfg.ID).
					WithContext("option", key).
					Build()
			}
		}
		if prev, dup := seen[cfg.ID]; dup {
			return derrors.ConfigError(fmt.Sprintf("duplicate instance id %q", cfg.ID)).
				WithContext("instance_id", cfg.ID).
				WithContext("index", i).
				WithContext("first_index", prev).
				Build()
		}
		seen[cfg.ID] = i
	}
	return nil
}

// Construct validates configs and builds one instance per configuration, in
// order. It constructs nothing when validation fails.
func Construct[C any](lc plugin.LoadContext, configs []InstanceConfig, factory plugin.Factory) ([]*Instance[C], error) {
	if err := ValidateConfigs(configs); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, derrors.InternalError("plugin factory is nil").Build()
	}

	instances := make([]*Instance[C], 0, len(configs))
	for _, cfg := range configs {
		p, err := factory(lc, cfg.pluginOptions())
		if err != nil {
			err = plugin.NewPluginError("", cfg.ID, plugin.HookConstruct, err)
			return nil, derrors.WrapError(err, derrors.CategoryConfig, "construct plugin instance").
				Fatal().
				WithContext("instance_id", cfg.ID).
				Build()
		}
		if p == nil {
			return nil, derrors.ConfigError("plugin factory returned nil").
				WithContext("instance_id", cfg.ID).
				Build()
		}
		instances = append(instances, &Instance[C]{
			ID:     cfg.ID,
			plugin: p,
			hooks:  plugin.ResolveHooks[C](p),
		})
	}
	return instances, nil
}
