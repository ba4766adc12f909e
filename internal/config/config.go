// Package config loads the optional YAML runtime tunables for the
// controller and switch binaries: knobs the fixed wire protocol and CLI
// contract don't cover (log directory, metrics listen address, the
// UPDATE_DELAY/TIMEOUT pair), following a decode-then-default-fill idiom.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultUpdateDelay = 2 * time.Second
	defaultMetricsAddr = ":9090"
	defaultLogDir      = "."
)

// Controller holds the controller's runtime tunables.
type Controller struct {
	LogDir      string
	MetricsAddr string
	UpdateDelay time.Duration
	Timeout     time.Duration
}

// Switch holds the switch's runtime tunables.
type Switch struct {
	LogDir      string
	MetricsAddr string
	UpdateDelay time.Duration
	Timeout     time.Duration
}

// DefaultController returns the tunables assumed when no config file is
// given.
func DefaultController() *Controller {
	return &Controller{
		LogDir:      defaultLogDir,
		MetricsAddr: defaultMetricsAddr,
		UpdateDelay: defaultUpdateDelay,
		Timeout:     3 * defaultUpdateDelay,
	}
}

// DefaultSwitch returns the tunables assumed when no config file is
// given.
func DefaultSwitch() *Switch {
	return &Switch{
		LogDir:      defaultLogDir,
		MetricsAddr: "", // disabled unless configured: switches don't bind a well-known port
		UpdateDelay: defaultUpdateDelay,
		Timeout:     3 * defaultUpdateDelay,
	}
}

type yamlControllerConfig struct {
	Controller struct {
		LogDir         string `yaml:"log_dir"`
		MetricsAddr    string `yaml:"metrics_addr"`
		UpdateDelaySec int    `yaml:"update_delay_sec"`
		TimeoutSec     int    `yaml:"timeout_sec"`
	} `yaml:"controller"`
}

// LoadController reads filename and overlays it onto DefaultController. An
// empty filename returns the defaults unchanged.
func LoadController(filename string) (*Controller, error) {
	cfg := DefaultController()
	if filename == "" {
		return cfg, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", filename, err)
	}
	defer file.Close()

	var yc yamlControllerConfig
	if err := yaml.NewDecoder(file).Decode(&yc); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", filename, err)
	}

	if yc.Controller.LogDir != "" {
		cfg.LogDir = yc.Controller.LogDir
	}
	if yc.Controller.MetricsAddr != "" {
		cfg.MetricsAddr = yc.Controller.MetricsAddr
	}
	if yc.Controller.UpdateDelaySec > 0 {
		cfg.UpdateDelay = time.Duration(yc.Controller.UpdateDelaySec) * time.Second
	}
	if yc.Controller.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(yc.Controller.TimeoutSec) * time.Second
	} else if yc.Controller.UpdateDelaySec > 0 {
		cfg.Timeout = 3 * cfg.UpdateDelay
	}

	return cfg, nil
}

type yamlSwitchConfig struct {
	Switch struct {
		LogDir         string `yaml:"log_dir"`
		MetricsAddr    string `yaml:"metrics_addr"`
		UpdateDelaySec int    `yaml:"update_delay_sec"`
		TimeoutSec     int    `yaml:"timeout_sec"`
	} `yaml:"switch"`
}

// LoadSwitch reads filename and overlays it onto DefaultSwitch. An empty
// filename returns the defaults unchanged.
func LoadSwitch(filename string) (*Switch, error) {
	cfg := DefaultSwitch()
	if filename == "" {
		return cfg, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", filename, err)
	}
	defer file.Close()

	var yc yamlSwitchConfig
	if err := yaml.NewDecoder(file).Decode(&yc); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", filename, err)
	}

	if yc.Switch.LogDir != "" {
		cfg.LogDir = yc.Switch.LogDir
	}
	if yc.Switch.MetricsAddr != "" {
		cfg.MetricsAddr = yc.Switch.MetricsAddr
	}
	if yc.Switch.UpdateDelaySec > 0 {
		cfg.UpdateDelay = time.Duration(yc.Switch.UpdateDelaySec) * time.Second
	}
	if yc.Switch.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(yc.Switch.TimeoutSec) * time.Second
	} else if yc.Switch.UpdateDelaySec > 0 {
		cfg.Timeout = 3 * cfg.UpdateDelay
	}

	return cfg, nil
}
