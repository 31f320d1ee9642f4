package config

import (
	"time"

	"github.com/felipemart/baseprojeto/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Cache     Cache
	Mail      Mail
	Log       logger.Log
	Title     string
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool    // enable static file browsing (for development purposes only)
	DisableRecover bool    // disable recover middleware
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	Session        Session // session settings
}

// Cache holds the Redis settings for the authz session cache.
type Cache struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds the lifetime of session cache entries; entries are rebuilt
	// on demand after expiry.
	TTL time.Duration
}

// Mail holds SMTP settings for outgoing notifications.
type Mail struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
