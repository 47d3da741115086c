package ipcheck

import (
	"net"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-driven settings for the ipcheck server.
type Config struct {
	// UserAgent overrides the User-Agent header sent upstream. Empty means
	// the built-in default.
	UserAgent string `env:"IPCHECK_USER_AGENT"`

	// Host and Port are the bind address used by the network transports.
	Host string `env:"IPCHECK_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"IPCHECK_PORT" envDefault:"8000"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// Addr returns the bind address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
