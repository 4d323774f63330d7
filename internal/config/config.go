package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir        = "photosphere"
	DefaultYawStep        = 30
	DefaultAcquireTimeout = 5.0
)

type Config struct {
	// Tilts and Yaws define the pose grid, in degrees, in traversal order.
	Tilts []int `yaml:"tilts"`
	Yaws  []int `yaml:"yaws"`

	// DataDir holds the per-pose frames and the stitched output.
	DataDir string `yaml:"data_dir"`

	// Camera selects the enumerated device by index.
	Camera int `yaml:"camera"`

	// Unattended skips the operator-advance pause at every pose.
	Unattended bool `yaml:"unattended"`

	// AcquireTimeout bounds a single frame acquisition, in seconds.
	AcquireTimeout float64 `yaml:"acquire_timeout"`

	// Simulate uses the built-in synthetic camera instead of hardware.
	Simulate bool `yaml:"simulate"`
}

// Default matches the original rig setup: three tilt rows and a full
// 360-degree yaw sweep in 30-degree steps.
func Default() *Config {
	yaws := make([]int, 0, 360/DefaultYawStep)
	for y := 0; y < 360; y += DefaultYawStep {
		yaws = append(yaws, y)
	}
	return &Config{
		Tilts:          []int{-30, 0, 30},
		Yaws:           yaws,
		DataDir:        DefaultDataDir,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if len(c.Tilts) == 0 || len(c.Yaws) == 0 {
		return fmt.Errorf("config: grid needs at least one tilt and one yaw")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.Camera < 0 {
		return fmt.Errorf("config: camera index must not be negative")
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("config: acquire_timeout must be positive")
	}
	return nil
}
