package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ShareConfig describes one mounted SMB share.
type ShareConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Server    string `yaml:"server" toml:"server"`
	Share     string `yaml:"share" toml:"share"`
	MountPath string `yaml:"mount_path" toml:"mount_path"`
}

type sharesFile struct {
	Shares []ShareConfig `yaml:"shares" toml:"shares"`
}

// LoadShares reads a shares file. The format follows the extension: .yaml
// and .yml are YAML, .toml is TOML. An empty path yields no shares.
func LoadShares(path string) ([]ShareConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shares file: %w", err)
	}

	var file sharesFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported shares file format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse shares file %s: %w", path, err)
	}

	for i, s := range file.Shares {
		if s.Server == "" || s.Share == "" || s.MountPath == "" {
			return nil, fmt.Errorf("shares file %s: entry %d needs server, share and mount_path", path, i+1)
		}
	}
	return file.Shares, nil
}
