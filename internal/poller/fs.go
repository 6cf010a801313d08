package poller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pelletier/go-toml/v2"

	"modelrepo/pkg/types"
)

// FSLister enumerates model directories under a repository root the way the
// teacher's registry.LoadDir walks a model directory: one subdirectory per
// model, home-relative paths expanded before use.
type FSLister struct{}

// List returns one Entry per immediate subdirectory of repoRoot. ModTime is
// the latest of the directory's own mtime and its config file's mtime, so
// either a rewritten config or a touched version directory registers as a
// change.
func (FSLister) List(repoRoot string) ([]Entry, error) {
	abs, err := expandHome(repoRoot)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read repository %s: %w", repoRoot, err)
	}

	var out []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		modelDir := filepath.Join(abs, de.Name())
		mtime := statMTime(modelDir)
		for _, base := range configBasenames {
			if cm := statMTime(filepath.Join(modelDir, base)); cm != 0 {
				if cm > mtime {
					mtime = cm
				}
				break
			}
		}
		out = append(out, Entry{Name: de.Name(), ModTime: mtime})
	}
	return out, nil
}

// FSParser reads a model's config file, named config.json/.yaml/.yml/.toml
// (checked in that order), from the top of its directory. The first one
// found wins.
type FSParser struct{}

var configBasenames = []string{"config.json", "config.yaml", "config.yml", "config.toml"}

// Parse loads and unmarshals the config file in path, then layers overrides
// onto the parsed Parameters map. A directory with no recognized config file
// is treated as a bare leaf model named after the directory.
func (FSParser) Parse(path string, overrides map[string]string) (types.ModelConfig, error) {
	abs, err := expandHome(path)
	if err != nil {
		return types.ModelConfig{}, err
	}
	name := filepath.Base(abs)

	cfg := types.ModelConfig{Name: name}
	for _, base := range configBasenames {
		p := filepath.Join(abs, base)
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := unmarshalConfig(base, data, &cfg); err != nil {
			return types.ModelConfig{}, fmt.Errorf("parse %s: %w", p, err)
		}
		break
	}
	if cfg.Name == "" {
		cfg.Name = name
	}

	if len(overrides) > 0 {
		if cfg.Parameters == nil {
			cfg.Parameters = make(map[string]string, len(overrides))
		}
		for k, v := range overrides {
			if k == "model_directory_override" {
				continue
			}
			cfg.Parameters[k] = v
		}
	}
	return cfg, nil
}

func unmarshalConfig(basename string, data []byte, cfg *types.ModelConfig) error {
	switch {
	case strings.HasSuffix(basename, ".json"):
		return json.Unmarshal(data, cfg)
	case strings.HasSuffix(basename, ".yaml"), strings.HasSuffix(basename, ".yml"):
		return yaml.Unmarshal(data, cfg)
	case strings.HasSuffix(basename, ".toml"):
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unrecognized config format: %s", basename)
	}
}

// expandHome expands a leading '~' to the user's home directory, same
// behavior as the teacher's fsutil.ExpandHome.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return filepath.Abs(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

func statMTime(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.ModTime().UnixNano()
}

func entryPath(repo, name string) string {
	abs, err := expandHome(repo)
	if err != nil {
		abs = repo
	}
	return filepath.Join(abs, name)
}

// versionSubdirs returns the numeric version subdirectories under a model
// directory, in the order os.ReadDir lists them (by name, not numerically).
// Not consulted by the graph — a model's available versions only matter to
// the Lifecycle Engine — and not called anywhere in this repository.
func versionSubdirs(modelDir string) []int64 {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return nil
	}
	var versions []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, err := strconv.ParseInt(e.Name(), 10, 64); err == nil {
			versions = append(versions, v)
		}
	}
	return versions
}
