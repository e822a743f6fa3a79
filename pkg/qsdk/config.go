package qsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ExportConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"useSSL"`
}

type Config struct {
	BaseURL  string        `mapstructure:"baseUrl"`
	APIKey   string        `mapstructure:"apiKey"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Insecure bool          `mapstructure:"insecure"`
	Output   string        `mapstructure:"output"`
	Export   ExportConfig  `mapstructure:"export"`

	v *viper.Viper // instance-specific viper
}

const (
	EnvPrefix  = "QSYS"
	ConfigName = "qsys"
	ConfigRoot = ".qsys"

	BaseUrlKey  = "baseUrl"
	ApiKeyKey   = "apiKey"
	TokenKey    = "token"
	TimeoutKey  = "timeout"
	InsecureKey = "insecure"
	OutputKey   = "output"
)

// LoadConfig creates a new Config instance with its own viper
// This is the only way to load config (no global state)
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about; nested export
	// keys have no defaults so bind them explicitly.
	for _, k := range []string{"export.endpoint", "export.accessKey", "export.secretKey", "export.bucket", "export.region", "export.useSSL"} {
		_ = v.BindEnv(k)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		// Project config (tracked), qsys.yaml in the current directory
		for _, name := range []string{ConfigName + ".yaml", ConfigName + ".yml", "." + ConfigName + ".yaml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}

		// Local overrides (untracked), .qsys/config.yaml
		localConfigPath := filepath.Join(ConfigRoot, "config.yaml")
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging local config: %w", err)
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}

	cfg.v = v
	return &cfg, nil
}

// Get returns a value from the underlying viper instance
// Useful for CLI flag binding and dynamic config access
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// GetString returns a string value from the underlying viper instance
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// Viper returns the underlying viper instance
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Set overrides a key at runtime (flags) and keeps the struct in sync.
func (c *Config) Set(key string, value any) error {
	if c.v == nil {
		c.v = viper.New()
	}
	c.v.Set(key, value)
	setDefaults(c.v)
	v := c.v
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	c.v = v
	return nil
}

func setDefaults(v *viper.Viper) {
	if !v.IsSet(BaseUrlKey) {
		v.SetDefault(BaseUrlKey, "http://localhost:3000")
	} else {
		normalized := strings.TrimRight(v.GetString(BaseUrlKey), "/")
		v.Set(BaseUrlKey, normalized)
	}

	v.SetDefault(TimeoutKey, "30s")
	v.SetDefault(InsecureKey, false)
	v.SetDefault(OutputKey, "table")
	v.SetDefault("export.region", "us-east-1")
}

// ConfigFileUsed returns the config file that was used (if any)
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
