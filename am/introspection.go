package am

import (
	"os"
	"sort"
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// ConfigSource names one layer of the configuration cascade.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/monuments/config.toml
	SourceUser        ConfigSource = "user"        // ~/.monuments/am.toml
	SourceProject     ConfigSource = "project"     // am.toml found from the working directory up
	SourceEnvironment ConfigSource = "environment" // MONUMENTS_* variables
)

// SourceInfo is the layer a value came from and, for files and env vars,
// which one.
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// SettingInfo is one effective setting and where it came from.
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// ConfigIntrospection lists every effective setting, sorted by key.
type ConfigIntrospection struct {
	ConfigFile string        `json:"config_file"`
	Settings   []SettingInfo `json:"settings"`
}

// GetConfigIntrospection loads the configuration if needed and reports the
// source of each setting as recorded during loading.
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	v := GetViper()

	mu.Lock()
	recorded := make(map[string]SourceInfo, len(ConfigSources))
	for k, si := range ConfigSources {
		recorded[k] = si
	}
	mu.Unlock()

	keys := v.AllKeys()
	sort.Strings(keys)

	out := &ConfigIntrospection{
		ConfigFile: ActiveConfigFile(),
		Settings:   make([]SettingInfo, 0, len(keys)),
	}
	for _, key := range keys {
		src := sourceOf(key, recorded)
		out.Settings = append(out.Settings, SettingInfo{
			Key:        key,
			Value:      v.Get(key),
			Source:     src.Source,
			SourcePath: src.Path,
		})
	}
	return out, nil
}

// sourceOf resolves a key to its winning layer: a set env var beats any
// file, a file beats the default.
func sourceOf(key string, recorded map[string]SourceInfo) SourceInfo {
	env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if os.Getenv(env) != "" {
		return SourceInfo{Source: SourceEnvironment, Path: env}
	}
	if si, ok := recorded[key]; ok {
		return si
	}
	return SourceInfo{Source: SourceDefault}
}

// CountBySource tallies settings per layer.
func (ci *ConfigIntrospection) CountBySource() map[ConfigSource]int {
	counts := make(map[ConfigSource]int)
	for _, s := range ci.Settings {
		counts[s.Source]++
	}
	return counts
}
