package server

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/xmppcore-go/internal/peerlink"
)

var (
	// ErrEmptyDomain is returned when the server domain is empty
	ErrEmptyDomain = errors.New("server domain cannot be empty")
	// ErrInvalidDomain is returned when the server domain is not a bare domain
	ErrInvalidDomain = errors.New("server domain must not contain '@' or '/'")
)

const (
	// DefaultServerName is advertised by the version and disco#info handlers
	DefaultServerName = "xmppcore"
	// DefaultVersion is advertised when no build version is set
	DefaultVersion = "dev"
)

// Config represents configuration for a Server
type Config struct {
	// Domain is the XMPP domain this server is authoritative for
	Domain string `yaml:"domain"`

	// ServerName and Version identify the software to clients
	ServerName string `yaml:"server_name"`
	Version    string `yaml:"version"`

	// HandlerCacheSize bounds the namespace lookup cache
	HandlerCacheSize int `yaml:"handler_cache_size"`

	// Peers lists remote servers as "domain=address"
	Peers []string `yaml:"peers"`

	// PeerLink configuration; nil disables server-to-server links
	PeerLink *peerlink.Config `yaml:"peer_link"`

	// Admin configures the admin HTTP API
	Admin AdminConfig `yaml:"admin"`
}

// AdminConfig holds the admin HTTP API settings
type AdminConfig struct {
	Port      string `yaml:"port"`
	SecretKey string `yaml:"secret_key"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// NewConfig creates a new Server configuration with safe defaults
func NewConfig(domain string) *Config {
	cfg := &Config{Domain: domain}
	cfg.SetDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration and applies defaults
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	if c.ServerName == "" {
		c.ServerName = DefaultServerName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Admin.Port == "" {
		c.Admin.Port = "8081"
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
	if c.PeerLink != nil && c.PeerLink.Domain == "" {
		c.PeerLink.Domain = c.Domain
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Domain == "" {
		return ErrEmptyDomain
	}
	if strings.ContainsAny(c.Domain, "@/") {
		return ErrInvalidDomain
	}

	// Validate PeerLink config if provided
	if c.PeerLink != nil {
		if err := c.PeerLink.Validate(); err != nil {
			return fmt.Errorf("invalid PeerLink config: %w", err)
		}
		if !strings.EqualFold(c.PeerLink.Domain, c.Domain) {
			return fmt.Errorf("invalid PeerLink config: domain %q differs from server domain %q", c.PeerLink.Domain, c.Domain)
		}
	}
	if len(c.Peers) > 0 && c.PeerLink == nil {
		return errors.New("peers configured without a peer link")
	}

	return nil
}

// WithPeerLinkConfig sets the PeerLink configuration
func (c *Config) WithPeerLinkConfig(config *peerlink.Config) *Config {
	c.PeerLink = config
	if config != nil && config.Domain == "" {
		config.Domain = c.Domain
	}
	return c
}

// WithPeers sets the static peer list
func (c *Config) WithPeers(peers ...string) *Config {
	c.Peers = peers
	return c
}

// WithVersion sets the advertised software version
func (c *Config) WithVersion(version string) *Config {
	c.Version = version
	return c
}

// WithAdmin sets the admin API configuration
func (c *Config) WithAdmin(admin AdminConfig) *Config {
	c.Admin = admin
	return c
}
