package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config configuration struct
type Config struct {
	Level           int              `json:"level" yaml:"level"`
	Format          string           `json:"format" yaml:"format"`
	Output          string           `json:"output" yaml:"output"`
	OutputFile      string           `json:"output_file" yaml:"output_file"`
	Version         string           `json:"version" yaml:"version"`
	Desensitization *Desensitization `json:"desensitization" yaml:"desensitization"`
}

// GetConfig returns the logger configuration
func GetConfig(v *viper.Viper) *Config {
	if !v.IsSet("logger") {
		return &Config{
			Level:           4,
			Format:          "text",
			Output:          "stdout",
			Desensitization: getDesensitizationConfigs(v),
		}
	}

	return &Config{
		Level:           v.GetInt("logger.level"),
		Format:          strings.ToLower(v.GetString("logger.format")),
		Output:          strings.ToLower(v.GetString("logger.output")),
		OutputFile:      v.GetString("logger.output_file"),
		Version:         v.GetString("app_version"),
		Desensitization: getDesensitizationConfigs(v),
	}
}
