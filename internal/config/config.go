package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// HTTP listen address for the backend
	Listen string `mapstructure:"listen"`

	// Target repository being explored
	RepoRoot string `mapstructure:"repo_root"`

	// Directory containing the analysis/tracer scripts
	ToolsDir string `mapstructure:"tools_dir"`

	// Interpreter used to run the scripts
	PythonBin string `mapstructure:"python_bin"`

	// Where the changed-functions script writes its detail document
	FunctionsFile string `mapstructure:"functions_file"`

	// Upper bound on one blocking event read; "0" disables the deadline
	StepTimeout string `mapstructure:"step_timeout"`

	// Origins the desktop frontend may call from
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Verbose bool `mapstructure:"verbose"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Listen:         "127.0.0.1:8791",
		RepoRoot:       ".",
		ToolsDir:       "tools",
		PythonBin:      "python3",
		FunctionsFile:  "functions.json",
		StepTimeout:    "30s",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

// StepTimeoutDuration parses the configured step timeout.
func (c *Config) StepTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StepTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid step_timeout %q: %w", c.StepTimeout, err)
	}
	return d, nil
}

// TracerScript returns the path to the tracer tool.
func (c *Config) TracerScript() string {
	return filepath.Join(c.ToolsDir, "get_tracer.py")
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("flowlens")
	v.SetConfigType("yaml")

	// Config paths, lowest precedence first.
	v.AddConfigPath("/etc/flowlens/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "flowlens"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".flowlens")
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("FLOWLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("listen", "FLOWLENS_LISTEN")
	v.BindEnv("repo_root", "FLOWLENS_REPO")
	v.BindEnv("tools_dir", "FLOWLENS_TOOLS")
	// PYTHON_BIN without the prefix is honored for compatibility with the
	// scripts' own convention.
	v.BindEnv("python_bin", "FLOWLENS_PYTHON_BIN", "PYTHON_BIN")
	v.BindEnv("step_timeout", "FLOWLENS_STEP_TIMEOUT")
	v.BindEnv("verbose", "FLOWLENS_VERBOSE")

	cfg := Default()
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("repo_root", cfg.RepoRoot)
	v.SetDefault("tools_dir", cfg.ToolsDir)
	v.SetDefault("python_bin", cfg.PythonBin)
	v.SetDefault("functions_file", cfg.FunctionsFile)
	v.SetDefault("step_timeout", cfg.StepTimeout)
	v.SetDefault("allowed_origins", cfg.AllowedOrigins)

	// Missing config file is fine; defaults apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
