package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".vitals.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/vitals"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. VITALS_AGENT_URL.
	EnvPrefix = "VITALS"
)

// Load reads config from the specified path. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'vitals config init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// LoadDefaults returns defaults with environment overrides applied.
func LoadDefaults() (*Config, error) {
	return parseConfig(newViper(), "")
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .vitals.yaml in current directory
// 3. .vitals.yaml in parent directories (stops at git root or home)
// 4. ~/.config/vitals/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			// Don't go above home directory
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isGitRoot(dir) {
			break
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := LoadDefaults()
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every known key so env overrides apply and partial
// source blocks keep their unspecified fields.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("agent.url", def.Agent.URL)
	v.SetDefault("agent.ssh", def.Agent.SSH)
	v.SetDefault("agent.insecure_host_key", def.Agent.InsecureHostKey)
	v.SetDefault("agent.timeout", def.Agent.Timeout.String())
	for name, sc := range def.Sources {
		v.SetDefault("sources."+name+".interval", sc.Interval.String())
		v.SetDefault("sources."+name+".enabled", sc.Enabled)
	}
	v.SetDefault("history.size", def.History.Size)
	v.SetDefault("history.prefill", def.History.Prefill)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.path", def.Notifications.Path)
	v.SetDefault("notifications.backoff.initial", def.Notifications.Backoff.Initial.String())
	v.SetDefault("notifications.backoff.max", def.Notifications.Backoff.Max.String())
	v.SetDefault("output.color", def.Output.Color)
	v.SetDefault("output.log_file", def.Output.LogFile)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := &Config{Sources: make(map[string]SourceConfig)}

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Agent.SSH = Expand(cfg.Agent.SSH)
	cfg.Output.LogFile = ExpandTilde(Expand(cfg.Output.LogFile))

	return cfg, nil
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}
