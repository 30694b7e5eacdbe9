package host

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk YAML form of Config.
type fileConfig struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"working_directory"`

	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`

	StopCommand   string `yaml:"stop_command"`
	StopMessage   string `yaml:"stop_message"`
	StopTimeoutMS *int   `yaml:"stop_timeout_ms"`

	StatusAddr string `yaml:"status_addr"`
}

// LoadConfigFile reads a YAML config file. Fields missing from the file get their defaults.
// The result is not validated, so callers can apply overrides first.
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML config bytes, rejecting unknown fields.
func ParseConfig(b []byte) (Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg := Config{
		Executable: fc.Executable,
		Args:       fc.Args,
		WorkingDir: fc.WorkingDir,
		Bind:       fc.Bind,
		Port:       fc.Port,
		Stop: StopPolicy{
			Command: fc.StopCommand,
			Message: fc.StopMessage,
		},
		StatusAddr: fc.StatusAddr,
	}
	if cfg.Bind == "" {
		cfg.Bind = DefaultBind
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if fc.StopTimeoutMS != nil {
		cfg.Stop.Timeout = time.Duration(*fc.StopTimeoutMS) * time.Millisecond
		if *fc.StopTimeoutMS == 0 {
			// an explicit zero still means "don't wait"
			cfg.Stop.Timeout = time.Millisecond
		}
	}
	return cfg, nil
}
