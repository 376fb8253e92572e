// Package config provides configuration management for go-volontulo.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultListenPort = 11880
	DefaultLanguage   = "pl"
	EnvPrefix         = "VOLONTULO"
)

// MainConfig holds the main configuration for go-volontulo
type MainConfig struct {
	Web      WebConfig      `mapstructure:"web" json:"web"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Mail     MailConfig     `mapstructure:"mail" json:"mail"`

	AppVersion string `mapstructure:"-" json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort     int           `mapstructure:"listen_port" json:"listen_port"`
	SSL            bool          `mapstructure:"ssl" json:"ssl"`
	CertFile       string        `mapstructure:"cert_file" json:"cert_file,omitempty"`
	KeyFile        string        `mapstructure:"key_file" json:"key_file,omitempty"`
	Language       string        `mapstructure:"language" json:"language"`   // default response language (pl, en)
	TokenTTL       time.Duration `mapstructure:"token_ttl" json:"token_ttl"` // 0 = REST tokens never expire
	TrustedProxies []string      `mapstructure:"trusted_proxies" json:"trusted_proxies"`
	Debug          bool          `mapstructure:"debug" json:"debug"` // Enable debug logging for sessions/auth
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DataDir           string        `mapstructure:"data_dir" json:"data_dir"`
	WALMode           bool          `mapstructure:"wal" json:"wal"`
	OrgCacheSize      int           `mapstructure:"org_cache_size" json:"org_cache_size"`
	OrgCacheExpiry    time.Duration `mapstructure:"org_cache_expiry" json:"org_cache_expiry"`
	MaxOpenConns      int           `mapstructure:"max_open_conns" json:"max_open_conns"`
	SessionCleanupInt time.Duration `mapstructure:"session_cleanup_interval" json:"session_cleanup_interval"`
}

// MailConfig holds SMTP settings for outgoing notifications
type MailConfig struct {
	Enabled     bool     `mapstructure:"enabled" json:"enabled"`
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	Username    string   `mapstructure:"username" json:"username"`
	Password    string   `mapstructure:"password" json:"-"`
	From        string   `mapstructure:"from" json:"from"`
	AdminEmails []string `mapstructure:"admin_emails" json:"admin_emails"`
	NoTLS       bool     `mapstructure:"no_tls" json:"no_tls"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort:     DefaultListenPort,
			Language:       DefaultLanguage,
			TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		Database: DatabaseConfig{
			DataDir:           "./data",
			WALMode:           true,
			OrgCacheSize:      1024,
			OrgCacheExpiry:    5 * time.Minute,
			MaxOpenConns:      25,
			SessionCleanupInt: 15 * time.Minute,
		},
		Mail: MailConfig{
			Port: 587,
			From: "volontulo@volontuloapp.org",
		},
	}
}

// Load reads an optional config file and VOLONTULO_* environment variables
// on top of the defaults. An empty path only consults the environment.
func Load(path string) (*MainConfig, error) {
	cfg := NewDefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		log.Printf("[CONFIG]: loaded %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.AppVersion = AppVersion
	return cfg, cfg.Validate()
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, cfg *MainConfig) {
	v.SetDefault("web.listen_port", cfg.Web.ListenPort)
	v.SetDefault("web.ssl", cfg.Web.SSL)
	v.SetDefault("web.cert_file", cfg.Web.CertFile)
	v.SetDefault("web.key_file", cfg.Web.KeyFile)
	v.SetDefault("web.language", cfg.Web.Language)
	v.SetDefault("web.token_ttl", cfg.Web.TokenTTL)
	v.SetDefault("web.trusted_proxies", cfg.Web.TrustedProxies)
	v.SetDefault("web.debug", cfg.Web.Debug)

	v.SetDefault("database.data_dir", cfg.Database.DataDir)
	v.SetDefault("database.wal", cfg.Database.WALMode)
	v.SetDefault("database.org_cache_size", cfg.Database.OrgCacheSize)
	v.SetDefault("database.org_cache_expiry", cfg.Database.OrgCacheExpiry)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.session_cleanup_interval", cfg.Database.SessionCleanupInt)

	v.SetDefault("mail.enabled", cfg.Mail.Enabled)
	v.SetDefault("mail.host", cfg.Mail.Host)
	v.SetDefault("mail.port", cfg.Mail.Port)
	v.SetDefault("mail.username", cfg.Mail.Username)
	v.SetDefault("mail.password", cfg.Mail.Password)
	v.SetDefault("mail.from", cfg.Mail.From)
	v.SetDefault("mail.admin_emails", cfg.Mail.AdminEmails)
	v.SetDefault("mail.no_tls", cfg.Mail.NoTLS)
}

// Validate checks ranges that would otherwise fail late at startup
func (c *MainConfig) Validate() error {
	if c.Web.ListenPort < 1024 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", c.Web.ListenPort)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified in config")
	}
	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("mail enabled but mail.host not set")
	}
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir must not be empty")
	}
	return nil
}
