package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	News      NewsConfig      `mapstructure:"news"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the persistence mode once at startup: a postgres URL
// when configured, otherwise an embedded sqlite file for local/demo runs.
type DatabaseConfig struct {
	URL       string `mapstructure:"url"`
	LocalPath string `mapstructure:"local_path"`
}

func (d DatabaseConfig) Local() bool {
	return d.URL == ""
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

type AffiliateConfig struct {
	SignupCommission    float64 `mapstructure:"signup_commission"`
	DefaultRate         float64 `mapstructure:"default_rate"`
	CookieTTLDays       int     `mapstructure:"cookie_ttl_days"`
	EarningsSyncSeconds int     `mapstructure:"earnings_sync_seconds"`
}

type NewsConfig struct {
	AniListURL     string `mapstructure:"anilist_url"`
	RSSProxyURL    string `mapstructure:"rss_proxy_url"`
	RefreshMinutes int    `mapstructure:"refresh_minutes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml when present and lets environment variables
// override every key (SERVER_PORT, DATABASE_URL, AUTH_JWT_SECRET, ...).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5300)
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("database.url", "")
	v.SetDefault("database.local_path", "anime-loyalty.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 72)
	v.SetDefault("affiliate.signup_commission", 5.0)
	v.SetDefault("affiliate.default_rate", 0.1)
	v.SetDefault("affiliate.cookie_ttl_days", 30)
	v.SetDefault("affiliate.earnings_sync_seconds", 60)
	v.SetDefault("news.anilist_url", "https://graphql.anilist.co")
	v.SetDefault("news.rss_proxy_url", "https://api.rss2json.com/v1/api.json?rss_url=https://www.animenewsnetwork.com/all/rss.xml?ann-edition=w")
	v.SetDefault("news.refresh_minutes", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
