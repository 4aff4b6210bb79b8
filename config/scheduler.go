package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ScheduleEntry enqueues Job on Queue on the cron Spec.
type ScheduleEntry struct {
	Spec   string         `json:"spec" yaml:"spec" mapstructure:"spec" validate:"required"`
	Queue  string         `json:"queue" yaml:"queue" mapstructure:"queue"`
	Job    string         `json:"job" yaml:"job" mapstructure:"job" validate:"required"`
	Params map[string]any `json:"params" yaml:"params" mapstructure:"params"`
}

func getSchedulerConfig(v *viper.Viper) ([]*ScheduleEntry, error) {
	var entries []*ScheduleEntry
	if !v.IsSet("scheduler") {
		return entries, nil
	}
	if err := v.UnmarshalKey("scheduler", &entries); err != nil {
		return nil, fmt.Errorf("failed to read scheduler entries: %w", err)
	}
	return entries, nil
}
