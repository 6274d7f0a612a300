package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"5005"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// 数据库配置
	UseLocalDB    bool   `env:"USE_LOCAL_DB" envDefault:"true"`
	LocalDataDir  string `env:"LOCAL_DATA_DIR"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"idea_incubator"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// 实时通知跨实例转发
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"idea-incubator:events"`

	// JWT配置
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// OAuth配置
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthRedirectURI   string `env:"OAUTH_REDIRECT_URI" envDefault:"http://localhost:5005/auth/google/callback"`
	BaseURL            string `env:"BASE_URL"` // 基础URL，用于构建回调URL
	FrontendURL        string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// CORS配置
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// 限流与定时任务
	RateLimitPerMinute    int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	StartupCreationWindow time.Duration `env:"STARTUP_CREATION_WINDOW" envDefault:"168h"`
	ReminderSchedule      string        `env:"REMINDER_SCHEDULE" envDefault:"@hourly"`

	// 调试配置
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() (*Config, error) {
	// 根据环境加载对应的 .env 文件；已存在的环境变量优先
	switch os.Getenv("ENVIRONMENT") {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	// 环境特定配置
	if cfg.IsProduction() {
		// 生产环境配置了外部数据库时不使用本地数据库
		if cfg.PostgresDSN != "" || cfg.MongoURI != "" {
			cfg.UseLocalDB = false
		} else {
			fmt.Println("⚠️  WARNING: Production environment using local in-memory database. Please configure POSTGRES_DSN or MONGO_URI")
		}
		// 生产环境关闭调试
		cfg.Debug = false
	}
	return cfg, nil
}

// normalize trims values that commonly arrive with stray whitespace from env sources.
func (c *Config) normalize() {
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.MongoURI = strings.TrimSpace(c.MongoURI)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.GoogleClientID = strings.TrimSpace(c.GoogleClientID)
	c.GoogleClientSecret = strings.TrimSpace(c.GoogleClientSecret)
	c.OAuthRedirectURI = strings.TrimSpace(c.OAuthRedirectURI)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.AllowedOrigins = origins
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	cachedErr    error
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() (*Config, error) {
	configOnce.Do(func() {
		cachedConfig, cachedErr = LoadConfig()
	})
	return cachedConfig, cachedErr
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// 验证JWT密钥
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		fmt.Println("⚠️  Using default JWT secret (not recommended for production)")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	// 验证数据库配置
	if c.PostgresDSN == "" && c.MongoURI == "" && !c.UseLocalDB {
		return fmt.Errorf("database configuration incomplete: set POSTGRES_DSN, MONGO_URI or USE_LOCAL_DB=true")
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// GoogleOAuthEnabled reports whether the Google login flow is configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsServerless 检查是否运行在 Vercel / Lambda 环境
func IsServerless() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// loadEnvFile 加载 .env 文件到环境变量；文件不存在时静默返回
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	if err := godotenv.Load(filename); err != nil {
		fmt.Printf("⚠️  Failed to load %s: %v\n", filename, err)
	}
}
