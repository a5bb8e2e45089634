package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "LIVERTON"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "liverton.db"
	defaultLogLevel        = "info"
	defaultContactEmail    = "livertoncodes@gmail.com"
	defaultWhatsAppNumber  = "256791756647"
	defaultIdentityPath    = "identity.json"
	defaultPushSubscriber  = "mailto:livertoncodes@gmail.com"
	defaultAllowedOrigins  = "*"
	allowedOriginSeparator = ","
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	LogLevel        string
	AllowedOrigins  []string
	ContactEmail    string
	WhatsAppNumber  string
	IdentityPath    string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("contact.email", defaultContactEmail)
	configViper.SetDefault("contact.whatsapp_number", defaultWhatsAppNumber)
	configViper.SetDefault("identity.path", defaultIdentityPath)
	configViper.SetDefault("push.subscriber", defaultPushSubscriber)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		AllowedOrigins:  splitOrigins(configViper.GetString("http.allowed_origins")),
		ContactEmail:    configViper.GetString("contact.email"),
		WhatsAppNumber:  configViper.GetString("contact.whatsapp_number"),
		IdentityPath:    configViper.GetString("identity.path"),
		VAPIDPublicKey:  configViper.GetString("push.vapid_public_key"),
		VAPIDPrivateKey: configViper.GetString("push.vapid_private_key"),
		PushSubscriber:  configViper.GetString("push.subscriber"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func splitOrigins(raw string) []string {
	origins := []string{}
	for _, origin := range strings.Split(raw, allowedOriginSeparator) {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.ContactEmail) == "" {
		return fmt.Errorf("contact.email is required")
	}
	if strings.TrimSpace(c.WhatsAppNumber) == "" {
		return fmt.Errorf("contact.whatsapp_number is required")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("http.allowed_origins is required")
	}
	publicSet := strings.TrimSpace(c.VAPIDPublicKey) != ""
	privateSet := strings.TrimSpace(c.VAPIDPrivateKey) != ""
	if publicSet != privateSet {
		return fmt.Errorf("push.vapid_public_key and push.vapid_private_key must be set together")
	}
	return nil
}
