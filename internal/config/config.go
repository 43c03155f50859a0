package config

import (
    "fmt"
    "os"
    "strings"

    "gopkg.in/yaml.v3"

    "posbridge/internal/model"
)

// Config carries runtime settings: env vars first, optionally merged
// with a YAML file named by POSBRIDGE_CONFIG.
type Config struct {
    DatabaseURL  string `yaml:"database_url"`
    RedisURL     string `yaml:"redis_url"`
    Port         string `yaml:"port"`
    StripeAPIKey string `yaml:"stripe_api_key"`

    Providers map[string]ProviderConfig `yaml:"providers"`
    Tenants   map[string]TenantConfig   `yaml:"tenants"`
}

// ProviderConfig holds per-provider webhook settings.
type ProviderConfig struct {
    WebhookSecret   string `yaml:"webhook_secret"`
    NotificationURL string `yaml:"notification_url"`
}

// TenantConfig holds real POS credentials for one tenant. Tenants absent
// from this map run in demo mode.
type TenantConfig struct {
    Provider     string            `yaml:"provider"`
    ClientID     string            `yaml:"client_id"`
    ClientSecret string            `yaml:"client_secret"`
    LocationID   string            `yaml:"location_id"`
    Extra        map[string]string `yaml:"extra"`
}

// Load reads the optional YAML file, then applies env overrides.
func Load() (*Config, error) {
    cfg := &Config{
        Providers: map[string]ProviderConfig{},
        Tenants:   map[string]TenantConfig{},
    }
    if path := os.Getenv("POSBRIDGE_CONFIG"); path != "" {
        data, err := os.ReadFile(path)
        if err != nil {
            return nil, fmt.Errorf("read config file: %w", err)
        }
        if err := yaml.Unmarshal(data, cfg); err != nil {
            return nil, fmt.Errorf("parse config file: %w", err)
        }
        if cfg.Providers == nil {
            cfg.Providers = map[string]ProviderConfig{}
        }
        if cfg.Tenants == nil {
            cfg.Tenants = map[string]TenantConfig{}
        }
    }

    if v := os.Getenv("DATABASE_URL"); v != "" {
        cfg.DatabaseURL = v
    }
    if v := os.Getenv("REDIS_URL"); v != "" {
        cfg.RedisURL = v
    }
    if v := os.Getenv("PORT"); v != "" {
        cfg.Port = v
    }
    if cfg.Port == "" {
        cfg.Port = "8080"
    }
    if v := os.Getenv("STRIPE_API_KEY"); v != "" {
        cfg.StripeAPIKey = v
    }

    // POS_<PROVIDER>_WEBHOOK_SECRET / POS_<PROVIDER>_NOTIFICATION_URL
    for _, p := range []string{"toast", "clover", "square", "mock"} {
        prefix := "POS_" + strings.ToUpper(p)
        pc := cfg.Providers[p]
        if v := os.Getenv(prefix + "_WEBHOOK_SECRET"); v != "" {
            pc.WebhookSecret = v
        }
        if v := os.Getenv(prefix + "_NOTIFICATION_URL"); v != "" {
            pc.NotificationURL = v
        }
        cfg.Providers[p] = pc
    }

    return cfg, nil
}

// WebhookSecret implements the webhook processor's secret lookup.
func (c *Config) WebhookSecret(provider model.Provider) string {
    return c.Providers[string(provider)].WebhookSecret
}

// NotificationURL reports the public webhook endpoint for a provider.
func (c *Config) NotificationURL(provider model.Provider) string {
    return c.Providers[string(provider)].NotificationURL
}

// Credentials implements the order submitter's credential lookup. The
// second return is false when the tenant has no configured credentials,
// which callers treat as demo mode.
func (c *Config) Credentials(tenantID string, provider model.Provider) (model.Credentials, bool) {
    tc, ok := c.Tenants[tenantID]
    if !ok || tc.ClientID == "" || tc.ClientSecret == "" {
        return model.Credentials{}, false
    }
    if tc.Provider != "" && tc.Provider != string(provider) {
        return model.Credentials{}, false
    }
    return model.Credentials{
        Provider:     provider,
        ClientID:     tc.ClientID,
        ClientSecret: tc.ClientSecret,
        LocationID:   tc.LocationID,
        Extra:        tc.Extra,
    }, true
}
