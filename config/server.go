package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Server http server config struct
type Server struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	// Mode is the gin mode: debug, release or test
	Mode string `json:"mode" yaml:"mode" validate:"oneof=debug release test"`
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getServerConfig(v *viper.Viper) *Server {
	return &Server{
		Host: getStringOrDefault(v, "server.host", "0.0.0.0"),
		Port: getIntOrDefault(v, "server.port", 8080),
		Mode: getStringOrDefault(v, "server.mode", "release"),
	}
}
