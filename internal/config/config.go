package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "TRADELENS_CONFIG"

// DefaultPath is used when EnvConfigPath is unset.
const DefaultPath = "configs/config.yaml"

// PathFromEnv returns the config path from the environment or DefaultPath.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path and its include files, later files overriding earlier
// ones, then applies defaults for keys not set explicitly.
func Load(path string) (*Config, error) {
	layers, err := readLayers(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	for _, l := range layers {
		if err := v.MergeConfigMap(l.settings); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", l.path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	markKeys("", v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// layer 是单个配置文件解析后的内容（已去掉 include 键）。
type layer struct {
	path     string
	settings map[string]any
}

// readLayers 深度优先展开 include：被包含的文件排在包含它的文件之前，
// 重复出现的文件只读一次，循环包含报错。
func readLayers(path string) ([]layer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &layerWalker{done: map[string]bool{}, active: map[string]bool{}}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	return w.layers, nil
}

type layerWalker struct {
	done   map[string]bool
	active map[string]bool
	layers []layer
}

func (w *layerWalker) visit(path string) error {
	path = filepath.Clean(path)
	if w.active[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.done[path] {
		return nil
	}
	w.active[path] = true
	defer delete(w.active, path)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	includes, err := includeList(v.Get("include"))
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	settings := v.AllSettings()
	delete(settings, "include")
	w.done[path] = true
	w.layers = append(w.layers, layer{path: path, settings: settings})
	return nil
}

// includeList accepts a single file name or a list of them.
func includeList(raw any) ([]string, error) {
	var items []any
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		items = []any{val}
	case []any:
		items = val
	default:
		return nil, fmt.Errorf("include must be a file name or a list of file names")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include entries must be strings, got %v", item)
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// markKeys records every leaf path of settings ("charts.width"); lists count
// as leaves.
func markKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			dest.mark(prefix)
		}
		return
	}
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		markKeys(key, v, dest)
	}
}
