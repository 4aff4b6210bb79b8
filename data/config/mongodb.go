package config

import (
	"time"

	"github.com/spf13/viper"
)

// MongoDB mongodb config struct
type MongoDB struct {
	URI            string        `json:"uri" yaml:"uri"`
	Database       string        `json:"database" yaml:"database"`
	Logging        bool          `json:"logging" yaml:"logging"`
	MaxPoolSize    uint64        `json:"max_pool_size" yaml:"max_pool_size"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

const (
	defaultMongoDatabase       = "assets"
	defaultMongoConnectTimeout = 10 * time.Second
)

// getMongoDBConfigs reads MongoDB configurations
func getMongoDBConfigs(v *viper.Viper) *MongoDB {
	c := &MongoDB{
		URI:            v.GetString("data.mongodb.uri"),
		Database:       v.GetString("data.mongodb.database"),
		Logging:        v.GetBool("data.mongodb.logging"),
		MaxPoolSize:    v.GetUint64("data.mongodb.max_pool_size"),
		ConnectTimeout: v.GetDuration("data.mongodb.connect_timeout"),
	}
	if c.Database == "" {
		c.Database = defaultMongoDatabase
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultMongoConnectTimeout
	}
	return c
}
