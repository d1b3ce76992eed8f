package shard

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SidecarName is the descriptor written next to index_meta.json by the
// shard builder. The registry uses it to discover shards it didn't create.
const SidecarName = "shard.yaml"

// Sidecar is the on-disk shard descriptor.
type Sidecar struct {
	ID       string `yaml:"id"`
	RootPath string `yaml:"root_path"`
	Config   Config `yaml:",inline"`
}

// ReadSidecar loads <indexDir>/shard.yaml and returns the shard it describes.
func ReadSidecar(indexDir string) (*Shard, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, SidecarName))
	if err != nil {
		return nil, err
	}
	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SidecarName, err)
	}
	if sc.ID == "" {
		sc.ID = filepath.Base(indexDir)
	}
	sh := &Shard{
		ID:        sc.ID,
		RootPath:  sc.RootPath,
		IndexPath: indexDir,
		Config:    sc.Config,
	}
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	return sh, nil
}

// WriteSidecar writes the descriptor for sh into its index directory.
func WriteSidecar(sh *Shard) error {
	data, err := yaml.Marshal(Sidecar{ID: sh.ID, RootPath: sh.RootPath, Config: sh.Config})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", SidecarName, err)
	}
	return os.WriteFile(filepath.Join(sh.IndexPath, SidecarName), data, 0o644)
}
