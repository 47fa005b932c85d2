// Package config loads dld settings from file, environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all dld settings.
type Config struct {
	ADBPath      string `mapstructure:"adb_path"`
	DroidbotPath string `mapstructure:"droidbot_path"`
	OutputRoot   string `mapstructure:"output_root"`

	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	StopGrace      time.Duration `mapstructure:"stop_grace"`
	KeepRawFrames  bool          `mapstructure:"keep_raw_frames"`

	Rotate     RotateConfig     `mapstructure:"rotate"`
	PowerCycle PowerCycleConfig `mapstructure:"power_cycle"`
	HomeButton HomeButtonConfig `mapstructure:"home_button"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
}

// RotateConfig tunes the rotation perturbator.
type RotateConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// PowerCycleConfig tunes the power-cycle perturbator.
type PowerCycleConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	OffDelay    time.Duration `mapstructure:"off_delay"`
	MaxCycles   int           `mapstructure:"max_cycles"`
}

// HomeButtonConfig tunes the home-button perturbator.
type HomeButtonConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxActions  int           `mapstructure:"max_actions"`
}

// AnalysisConfig holds the hash-distance thresholds.
type AnalysisConfig struct {
	DataLossThreshold  int `mapstructure:"data_loss_threshold"`
	StateLossThreshold int `mapstructure:"state_loss_threshold"`
	CrashThreshold     int `mapstructure:"crash_threshold"`
}

// Load reads configuration from file and env. Env overrides use the DLD_
// prefix (DLD_ADB_PATH, DLD_ROTATE_MIN_INTERVAL, ...).
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("adb_path", "adb")
	v.SetDefault("droidbot_path", "droidbot")
	v.SetDefault("output_root", "output")
	v.SetDefault("command_timeout", "5s")
	v.SetDefault("stop_grace", "5s")
	v.SetDefault("keep_raw_frames", false)

	v.SetDefault("rotate.min_interval", "5s")
	v.SetDefault("power_cycle.min_interval", "30s")
	v.SetDefault("power_cycle.off_delay", "3s")
	v.SetDefault("power_cycle.max_cycles", 3)
	v.SetDefault("home_button.min_interval", "10s")
	v.SetDefault("home_button.max_actions", 20)

	v.SetDefault("analysis.data_loss_threshold", 10)
	v.SetDefault("analysis.state_loss_threshold", 10)
	v.SetDefault("analysis.crash_threshold", 5)

	v.SetConfigType("toml")

	if cfgPath := os.Getenv("DLD_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "dld"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DLD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
