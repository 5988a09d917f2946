package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the terminal client's configuration, read from ~/.diary.yaml,
// ./.diary.yaml and DIARY_* environment variables.
type Config struct {
	Server      string
	CacheDir    string
	CustomToken string
	StudentName string
	LogFile     string
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("server", "http://localhost:8080")
	viper.SetDefault("cache_dir", "~/.diary")
	viper.SetDefault("log_file", "~/.diary/diary.log")
	viper.SetConfigName(".diary") // .yaml is implicit
	viper.SetEnvPrefix("DIARY")
	viper.AutomaticEnv()

	if override := os.Getenv("DIARY_CONFIG_PATH"); override != "" {
		viper.AddConfigPath(override)
	}
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath("./")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cacheDir, err := homedir.Expand(viper.GetString("cache_dir"))
	if err != nil {
		return nil, fmt.Errorf("invalid cache_dir: %w", err)
	}
	logFile, err := homedir.Expand(viper.GetString("log_file"))
	if err != nil {
		return nil, fmt.Errorf("invalid log_file: %w", err)
	}

	return &Config{
		Server:      viper.GetString("server"),
		CacheDir:    filepath.Clean(cacheDir),
		CustomToken: viper.GetString("custom_token"),
		StudentName: viper.GetString("student_name"),
		LogFile:     logFile,
	}, nil
}

// Validate reports configuration that makes the client unusable.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server url is not set (DIARY_SERVER or server in .diary.yaml)")
	}
	return nil
}
