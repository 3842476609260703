package peerlink

import (
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
)

// Config holds configuration for the gRPC peer link
type Config struct {
	// Domain is the local server domain announced to peers
	Domain         string        `yaml:"domain"`
	ListenAddress  string        `yaml:"listen_address"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	MaxMessageSize int           `yaml:"max_message_size"`

	// DialOptions are appended to the options used for every peer connection
	DialOptions []grpc.DialOption `yaml:"-"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return errors.New("domain cannot be empty")
	}
	if c.ListenAddress == "" {
		return errors.New("listen address cannot be empty")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1024 * 1024 // 1MB
	}
}
