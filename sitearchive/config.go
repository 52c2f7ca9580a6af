package sitearchive

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// IndexConfig accepts either:
//  1. scalar form: the sitemap document path
//     index: content/sitemap.json
//  2. mapping form:
//     index:
//     backend: sqlite
//     path: content/sitemap.db
type IndexConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

func (c *IndexConfig) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		c.Path = strings.TrimSpace(value.Value)
		if strings.HasSuffix(strings.ToLower(c.Path), ".db") {
			c.Backend = BackendSQLite
		}
		return nil
	case yaml.MappingNode:
		var tmp struct {
			Backend string `yaml:"backend"`
			Path    string `yaml:"path"`
		}
		if err := value.Decode(&tmp); err != nil {
			return err
		}
		c.Backend = strings.ToLower(strings.TrimSpace(tmp.Backend))
		c.Path = strings.TrimSpace(tmp.Path)
		return nil
	default:
		return fmt.Errorf("index: expected a path or a mapping (line %d)", value.Line)
	}
}

type ArchiveConfig struct {
	Path string `yaml:"path"`
	// Handles is how many independent readers are opened on the archive.
	// One (the default) serializes every extraction.
	Handles int `yaml:"handles"`
}

type FileConfig struct {
	ContentPath   string        `yaml:"content_path"`
	ListenAddr    string        `yaml:"listen_addr"`
	Debug         bool          `yaml:"debug"`
	Index         IndexConfig   `yaml:"index"`
	Archive       ArchiveConfig `yaml:"archive"`
	OverridesPath string        `yaml:"overrides_path"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Index.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c IndexConfig) validate() error {
	switch c.Backend {
	case "", BackendMemory, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("index.backend: unknown backend %q (want %s or %s)", c.Backend, BackendMemory, BackendSQLite)
	}
}
