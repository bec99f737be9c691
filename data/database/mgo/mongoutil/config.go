package mongoutil

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"PShare/tools/errs"
)

const (
	defaultMaxPoolSize   = 100
	defaultMaxRetry      = 3
	defaultSelectTimeout = 5 * time.Second
	defaultAppName       = "pshare"
)

// Config describes one MongoDB deployment. Either Uri or Address must be set.
type Config struct {
	Uri           string
	Address       []string
	Database      string
	Username      string
	Password      string
	AuthSource    string
	AppName       string
	MaxPoolSize   int
	MaxRetry      int
	SelectTimeout time.Duration
}

// ValidateAndSetDefaults fills defaults and, for an address list, builds Uri.
func (c *Config) ValidateAndSetDefaults() error {
	if c.Uri == "" && len(c.Address) == 0 {
		return errs.New("either Uri or Address must be provided")
	}
	if c.Database == "" {
		return errs.New("database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	if c.SelectTimeout <= 0 {
		c.SelectTimeout = defaultSelectTimeout
	}
	if c.AppName == "" {
		c.AppName = defaultAppName
	}
	if c.Uri == "" {
		authSource := c.AuthSource
		if authSource == "" {
			authSource = c.Database
		}
		c.Uri = buildMongoURI(c, authSource)
	}
	return nil
}

// buildMongoURI joins the address list into a connection string; credentials are escaped.
func buildMongoURI(c *Config, authSource string) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   strings.Join(c.Address, ","),
		Path:   "/" + c.Database,
	}
	if c.Username != "" && c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	q.Set("authSource", authSource)
	q.Set("maxPoolSize", strconv.Itoa(c.MaxPoolSize))
	u.RawQuery = q.Encode()
	return u.String()
}
