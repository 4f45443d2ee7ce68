package softkin

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SolverConfig is an optional YAML tuning file. Absent fields keep the
// simulator defaults, so an empty file changes nothing.
//
//	num_substeps: 20
//	bending_compliance: 0.5
//	handle_collisions: false
type SolverConfig struct {
	NumSubsteps       *int     `yaml:"num_substeps"`
	StretchCompliance *float32 `yaml:"stretch_compliance"`
	ShearCompliance   *float32 `yaml:"shear_compliance"`
	BendingCompliance *float32 `yaml:"bending_compliance"`
	HandleCollisions  *bool    `yaml:"handle_collisions"`
	EdgeCompliance    *float32 `yaml:"edge_compliance"`
	VolCompliance     *float32 `yaml:"vol_compliance"`
}

func LoadSolverConfig(filename string) (SolverConfig, error) {
	var cfg SolverConfig
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("solver config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("solver config: yaml %w", err)
	}
	return cfg, nil
}

// ApplyCloth overrides the cloth's tunables with the set fields.
func (cfg SolverConfig) ApplyCloth(c *Cloth) {
	if cfg.NumSubsteps != nil {
		c.SetSolverSubsteps(*cfg.NumSubsteps)
	}
	if cfg.StretchCompliance != nil {
		c.StretchCompliance = *cfg.StretchCompliance
	}
	if cfg.ShearCompliance != nil {
		c.ShearCompliance = *cfg.ShearCompliance
	}
	if cfg.BendingCompliance != nil {
		c.BendingCompliance = *cfg.BendingCompliance
	}
	if cfg.HandleCollisions != nil {
		c.HandleCollisions = *cfg.HandleCollisions
	}
}

// ApplySoftBody overrides the soft body's tunables with the set fields.
func (cfg SolverConfig) ApplySoftBody(b *SoftBody) {
	if cfg.NumSubsteps != nil {
		b.SetSolverSubsteps(*cfg.NumSubsteps)
	}
	if cfg.EdgeCompliance != nil {
		b.EdgeCompliance = *cfg.EdgeCompliance
	}
	if cfg.VolCompliance != nil {
		b.VolCompliance = *cfg.VolCompliance
	}
}
