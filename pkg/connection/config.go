package connection

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/odoojs/odoo.go/pkg/constants"
	"github.com/rs/zerolog"
)

// Config holds everything needed to reach one Odoo database as one user.
// It is not modified after being handed to a client.
type Config struct {
	// Host is either a bare host name ("erp.example.com") or a full base URL
	// ("https://erp.example.com"). A full URL is used verbatim.
	Host string
	// Port is appended to a bare Host unless it is 0 or the scheme default.
	Port     int
	Database string
	Username string
	Password string
	// Secure selects https/wss for a bare Host.
	Secure bool

	// HTTPClient is used for every request. A client with
	// constants.DefaultHTTPTimeout is created when nil.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Observer   Observer
}

// NewConfig creates a Config for host with the default port.
// It is not absolutely necessary to create a Config using this function,
// fields can be set directly on a zero Config.
func NewConfig(host string) *Config {
	return &Config{
		Host: host,
		Port: constants.DefaultPort,
	}
}

// BaseURL returns the scheme://host[:port] prefix all endpoint paths are appended to.
func (c *Config) BaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if strings.Contains(host, "://") {
		return host
	}

	scheme, defaultPort := constants.HTTPScheme, constants.DefaultPort
	if c.Secure {
		scheme, defaultPort = constants.HTTPSecureScheme, constants.DefaultSecurePort
	}
	// The plain-HTTP default stays implicit on an https URL as well.
	if c.Port == 0 || c.Port == defaultPort || (c.Secure && c.Port == constants.DefaultPort) {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + strconv.Itoa(c.Port)
}

// WebsocketURL returns the bus endpoint matching BaseURL.
func (c *Config) WebsocketURL() string {
	base := c.BaseURL()
	switch {
	case strings.HasPrefix(base, constants.HTTPSecureScheme+"://"):
		base = constants.WebsocketSecureScheme + strings.TrimPrefix(base, constants.HTTPSecureScheme)
	case strings.HasPrefix(base, constants.HTTPScheme+"://"):
		base = constants.WebsocketScheme + strings.TrimPrefix(base, constants.HTTPScheme)
	}
	return base + constants.WebsocketPath
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return *c.Logger
}
