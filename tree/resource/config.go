package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// HashMode selects how node hashes are maintained.
type HashMode int

// Hash modes, fixed at resource creation.
const (
	// HashNone stores no hashes.
	HashNone HashMode = iota
	// HashRolling maintains hashes incrementally along the ancestor
	// path of every edit.
	HashRolling
	// HashPostorder recomputes the affected subtree bottom-up on every
	// edit.
	HashPostorder
)

func (m HashMode) String() string {
	switch m {
	case HashNone:
		return "none"
	case HashRolling:
		return "rolling"
	case HashPostorder:
		return "postorder"
	default:
		return "unknown"
	}
}

// configFile persists the resource configuration inside the resource
// directory.
const configFile = "config.json"

// Config is the per-resource configuration, fixed when the resource is
// created and persisted alongside the data.
type Config struct {
	// HashMode selects hash maintenance (default HashRolling).
	HashMode HashMode `json:"hashMode"`

	// StoreDeweyIDs assigns hierarchical order keys to every node.
	StoreDeweyIDs bool `json:"storeDeweyIDs"`

	// UseCompression compresses stored values.
	UseCompression bool `json:"useCompression"`

	// WithPathSummary maintains the path summary (default true).
	WithPathSummary bool `json:"withPathSummary"`

	// MaxNodeCount triggers an intermediate commit after this many
	// modifications in one write transaction; 0 disables.
	MaxNodeCount int `json:"maxNodeCount"`

	// AutoCommitInterval triggers periodic commits on the writer; 0
	// disables. A non-zero interval installs the writer lock.
	AutoCommitInterval time.Duration `json:"autoCommitInterval"`
}

// DefaultConfig returns the configuration applied when none is given.
func DefaultConfig() Config {
	return Config{
		HashMode:        HashRolling,
		WithPathSummary: true,
	}
}

// saveConfig writes the configuration file.
func saveConfig(dir string, cfg Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, configFile), raw, 0o644)
}

// loadConfig reads the configuration file; ok is false when none
// exists.
func loadConfig(dir string) (Config, bool, error) {
	raw, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, true, nil
}
