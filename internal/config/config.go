// Package config provides functionality for managing configuration options
// for the client and the server using command-line flags, a TOML config file
// and environment variables.
//
// Precedence, lowest first: built-in defaults, config file, flags given on
// the command line, environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/atinyakov/GophChat/internal/models"
)

// DefaultUserAgent is the mobile Safari agent the embedded browser presents
// to OAuth providers, so that they serve their mobile login pages.
const DefaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 10_3_1 like Mac OS X) AppleWebKit/603.1.30 (KHTML, like Gecko) Version/10.0 Mobile/14E304 Safari/602.1"

// BrowserOptions configures the embedded browser used by the logout flow.
type BrowserOptions struct {
	// Headless hides the browser window.
	Headless bool `toml:"headless"`
	// UserAgent overrides DefaultUserAgent.
	UserAgent string `toml:"user_agent"`
}

// ClientOptions holds the configuration values for the chat client.
type ClientOptions struct {
	// Server is the URL of the chat server selected at start-up.
	Server string `toml:"server" validate:"required,url"`

	// OAuthProvider is the name of the provider used for the logout web flow.
	OAuthProvider string `toml:"oauth_provider" validate:"required"`

	// Services is the provider configuration registered for Server when it
	// is not yet known to the local store.
	Services map[string]models.OAuthService `toml:"services"`

	// CAFile is an optional PEM bundle of an additional trusted CA.
	CAFile string `toml:"ca_file"`

	// DataDir holds the local database, the credential file and the device key.
	DataDir string `toml:"data_dir" validate:"required"`

	// CredentialBackend selects where tokens are kept: "file" or "redis".
	CredentialBackend string `toml:"credential_backend" validate:"oneof=file redis"`

	// RedisAddr is the address of the Redis credential backend.
	RedisAddr string `toml:"redis_addr" validate:"required_if=CredentialBackend redis"`

	// PushToken is the device push token registered after login. Empty
	// disables registration.
	PushToken string `toml:"push_token"`

	// Languages lists the locales the client ships translations for.
	Languages []string `toml:"languages" validate:"min=1"`

	// RequestTimeout is the per-request HTTP timeout in seconds.
	RequestTimeout int `toml:"request_timeout" validate:"gt=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" validate:"oneof=debug info warn error"`

	// Browser configures the embedded browser.
	Browser BrowserOptions `toml:"browser"`

	// Config is the path to the config file.
	Config string `toml:"-"`
}

// ServerOptions holds the configuration values for the development server.
type ServerOptions struct {
	// Port defines the server's listening address (ip:port).
	Port string `toml:"address" validate:"required"`

	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `toml:"database_dsn" validate:"required"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `toml:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey  string `toml:"tls_key" validate:"required_with=TLSCert"`

	// TokenRetentionHours is how long an unused login token stays valid.
	TokenRetentionHours int `toml:"token_retention_hours" validate:"gt=0"`

	// LoginRate is the number of login attempts per second the server accepts.
	LoginRate float64 `toml:"login_rate" validate:"gt=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" validate:"oneof=debug info warn error"`

	// Config is the path to the config file.
	Config string `toml:"-"`
}

var validate = validator.New()

// DefaultClientOptions returns the built-in client defaults.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Server:            "https://localhost:8080",
		OAuthProvider:     "edinnova",
		DataDir:           ".gophchat",
		CredentialBackend: "file",
		Languages:         []string{"en"},
		RequestTimeout:    10,
		LogLevel:          "info",
		Browser:           BrowserOptions{UserAgent: DefaultUserAgent},
	}
}

// DefaultServerOptions returns the built-in server defaults.
func DefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		Port:                "localhost:8080",
		TokenRetentionHours: 24 * 30,
		LoginRate:           5,
		LogLevel:            "info",
	}
}

// ParseClient parses args (without the program name) and the environment
// into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	options := DefaultClientOptions()
	flags := pflag.NewFlagSet("client", pflag.ContinueOnError)

	var fromFlags ClientOptions
	flags.StringVarP(&fromFlags.Server, "server", "s", options.Server, "chat server URL")
	flags.StringVar(&fromFlags.OAuthProvider, "oauth-provider", options.OAuthProvider, "OAuth provider used for logout")
	flags.StringVar(&fromFlags.CAFile, "ca", "", "path to an additional CA certificate")
	flags.StringVarP(&fromFlags.DataDir, "data", "d", options.DataDir, "data directory")
	flags.StringVar(&fromFlags.CredentialBackend, "credentials", options.CredentialBackend, "credential backend: file | redis")
	flags.StringVar(&fromFlags.RedisAddr, "redis", "", "redis address for the redis credential backend")
	flags.StringVar(&fromFlags.PushToken, "push-token", "", "device push token")
	flags.StringVar(&fromFlags.LogLevel, "log-level", options.LogLevel, "log level")
	flags.BoolVar(&fromFlags.Browser.Headless, "headless", false, "run the embedded browser headless")
	flags.StringVarP(&options.Config, "config", "c", "config.toml", "path to config file")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	overrideString(flags, "server", &options.Server, fromFlags.Server)
	overrideString(flags, "oauth-provider", &options.OAuthProvider, fromFlags.OAuthProvider)
	overrideString(flags, "ca", &options.CAFile, fromFlags.CAFile)
	overrideString(flags, "data", &options.DataDir, fromFlags.DataDir)
	overrideString(flags, "credentials", &options.CredentialBackend, fromFlags.CredentialBackend)
	overrideString(flags, "redis", &options.RedisAddr, fromFlags.RedisAddr)
	overrideString(flags, "push-token", &options.PushToken, fromFlags.PushToken)
	overrideString(flags, "log-level", &options.LogLevel, fromFlags.LogLevel)
	if flags.Changed("headless") {
		options.Browser.Headless = fromFlags.Browser.Headless
	}

	if server := os.Getenv("GOPHCHAT_SERVER"); server != "" {
		options.Server = server
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		options.RedisAddr = addr
	}
	if options.Browser.UserAgent == "" {
		options.Browser.UserAgent = DefaultUserAgent
	}

	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	return options, nil
}

// ParseServer parses args (without the program name) and the environment
// into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	options := DefaultServerOptions()
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)

	var fromFlags ServerOptions
	flags.StringVarP(&fromFlags.Port, "address", "a", options.Port, "run on ip:port server")
	flags.StringVarP(&fromFlags.DatabaseDSN, "database", "d", "", "db address")
	flags.StringVar(&fromFlags.TLSCert, "tls-cert", "", "path to the TLS certificate")
	flags.StringVar(&fromFlags.TLSKey, "tls-key", "", "path to the TLS key")
	flags.StringVar(&fromFlags.LogLevel, "log-level", options.LogLevel, "log level")
	flags.StringVarP(&options.Config, "config", "c", "config.toml", "path to config file")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	overrideString(flags, "address", &options.Port, fromFlags.Port)
	overrideString(flags, "database", &options.DatabaseDSN, fromFlags.DatabaseDSN)
	overrideString(flags, "tls-cert", &options.TLSCert, fromFlags.TLSCert)
	overrideString(flags, "tls-key", &options.TLSKey, fromFlags.TLSKey)
	overrideString(flags, "log-level", &options.LogLevel, fromFlags.LogLevel)

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}

	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return options, nil
}

// loadFile decodes the TOML file at path into v. A missing file is not an
// error.
func loadFile(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func overrideString(flags *pflag.FlagSet, name string, dst *string, value string) {
	if flags.Changed(name) {
		*dst = value
	}
}
