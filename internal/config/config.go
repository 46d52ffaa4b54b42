package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported student store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds runtime configuration values for the API and chat servers.
type Config struct {
	AppName                  string
	AppEnv                   string
	AppPort                  string
	ChatPort                 string
	StoreDriver              string
	DatabaseURL              string
	RedisURL                 string
	NATSURL                  string
	FeedChannel              string
	JWTSecret                string
	JWTTTL                   time.Duration
	AdminToken               string
	DashboardCacheTTL        time.Duration
	SeedCatalogPath          string
	SeedStudentsPath         string
	IntegritySchedule        string
	AIModel                  string
	OpenAIAPIKey             string
	AITimeout                time.Duration
	ChatMaxTurns             int
	KnowledgeChatMaxTurns    int
	KnowledgeBasePath        string
	KnowledgeMaxContextChars int
	ImporterMaxAdded         int
	AssistantAllowDefault    bool
	AssistantRateLimitPerMin int
}

// HTTPAddress returns the address the API server should listen on.
func (c Config) HTTPAddress() string {
	return listenAddress(c.AppPort)
}

// ChatAddress returns the address the standalone chat server listens on.
func (c Config) ChatAddress() string {
	return listenAddress(c.ChatPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func listenAddress(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}

	return fmt.Sprintf(":%s", port)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CSEASY")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CSEasy API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("chat.port", "3001")
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("database.url", "file:cseasy.db?cache=shared")
	v.SetDefault("feed.channel", "cseasy.students")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("seed.catalog_path", "")
	v.SetDefault("seed.students_path", "")
	v.SetDefault("integrity.schedule", "@every 1h")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("chat.max_turns", 10)
	v.SetDefault("chat.knowledge_max_turns", 6)
	v.SetDefault("chat.knowledge_base_path", "data/knowledge_base.md")
	v.SetDefault("chat.max_context_chars", 12000)
	v.SetDefault("importer.max_added", 20)
	v.SetDefault("assistant.allow_default_student", true)
	v.SetDefault("assistant.rate_limit_per_minute", 30)

	durations := map[string]time.Duration{}
	for _, key := range []string{"jwt.ttl", "dashboard.cache_ttl", "ai.timeout"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                  v.GetString("app.name"),
		AppEnv:                   v.GetString("app.env"),
		AppPort:                  v.GetString("app.port"),
		ChatPort:                 v.GetString("chat.port"),
		StoreDriver:              strings.ToLower(v.GetString("store.driver")),
		DatabaseURL:              v.GetString("database.url"),
		RedisURL:                 v.GetString("redis.url"),
		NATSURL:                  v.GetString("nats.url"),
		FeedChannel:              v.GetString("feed.channel"),
		JWTSecret:                v.GetString("jwt.secret"),
		JWTTTL:                   durations["jwt.ttl"],
		AdminToken:               v.GetString("admin.token"),
		DashboardCacheTTL:        durations["dashboard.cache_ttl"],
		SeedCatalogPath:          v.GetString("seed.catalog_path"),
		SeedStudentsPath:         v.GetString("seed.students_path"),
		IntegritySchedule:        v.GetString("integrity.schedule"),
		AIModel:                  v.GetString("ai.model"),
		OpenAIAPIKey:             v.GetString("openai_api_key"),
		AITimeout:                durations["ai.timeout"],
		ChatMaxTurns:             v.GetInt("chat.max_turns"),
		KnowledgeChatMaxTurns:    v.GetInt("chat.knowledge_max_turns"),
		KnowledgeBasePath:        v.GetString("chat.knowledge_base_path"),
		KnowledgeMaxContextChars: v.GetInt("chat.max_context_chars"),
		ImporterMaxAdded:         v.GetInt("importer.max_added"),
		AssistantAllowDefault:    v.GetBool("assistant.allow_default_student"),
		AssistantRateLimitPerMin: v.GetInt("assistant.rate_limit_per_minute"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.ChatMaxTurns <= 0 {
		cfg.ChatMaxTurns = 10
	}

	if cfg.KnowledgeChatMaxTurns <= 0 {
		cfg.KnowledgeChatMaxTurns = 6
	}

	return cfg, nil
}
