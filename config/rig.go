package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RigConfig describes one bench setup: bucket/tap geometry plus the starting
// environment. All fields are optional; zero values keep the rig defaults.
type RigConfig struct {
	BucketDiameterCm float64 `yaml:"bucket_diameter_cm"`
	BucketHeightCm   float64 `yaml:"bucket_height_cm"`
	TapDiameterMm    float64 `yaml:"tap_diameter_mm"`
	TapToScaleCm     float64 `yaml:"tap_to_scale_cm"`

	InitialFillCm float64 `yaml:"initial_fill_cm"`
	TemperatureC  float64 `yaml:"temperature_c"`
	Viscosity     string  `yaml:"viscosity"`

	NATSURL string `yaml:"nats_url"`
	Listen  string `yaml:"listen"`
}

// LoadRig reads a YAML rig description from path.
func LoadRig(path string) (*RigConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rig config: %w", err)
	}
	var rig RigConfig
	if err := yaml.Unmarshal(data, &rig); err != nil {
		return nil, fmt.Errorf("parse rig config %s: %w", path, err)
	}
	return &rig, nil
}
