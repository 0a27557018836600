package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DB     DBConfig
	Server ServerConfig
	Redis  RedisConfig
	Logger LoggerConfig
	Auth   AuthConfig
	LLM    LLMConfig
	Trivia TriviaConfig
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig selects the relational store. Driver is "postgres" or "sqlite";
// Path is only read for sqlite.
type DBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// LLMConfig configures the question model used when no template fits.
type LLMConfig struct {
	Provider  string
	Timeout   time.Duration
	MaxTokens int
	Ollama    OllamaConfig
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Gemini    ProviderConfig
}

type OllamaConfig struct {
	ServerURL string
	Model     string
}

type ProviderConfig struct {
	APIKey string
	Model  string
}

type TriviaConfig struct {
	ApproverID       string
	ApprovalTimeout  time.Duration
	SessionDuration  time.Duration
	RoundInterval    time.Duration
	HistorySize      int
	CategoryCooldown time.Duration
	SnapshotCacheTTL time.Duration
	ResultsCacheTTL  time.Duration
	MaxRegenerations int
	Evaluator        EvaluatorConfig
}

type EvaluatorConfig struct {
	FuzzyCorrect    float64
	FuzzyClose      float64
	OverlapClose    float64
	NumericRelative float64
	NumericAbsolute float64
	NumericMaxDelta float64
}

func setDefaults() {
	viper.SetDefault("db.driver", "postgres")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("db.path", "ash.db")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 20)
	viper.SetDefault("server.write_timeout", 20)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("auth.issuer", "ash-trivia")
	viper.SetDefault("auth.token_ttl", "720h")
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.ollama.server_url", "http://localhost:11434")
	viper.SetDefault("llm.ollama.model", "qwen3:0.6b")
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	viper.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("trivia.approval_timeout", "6h")
	viper.SetDefault("trivia.session_duration", "2m")
	viper.SetDefault("trivia.round_interval", "0s")
	viper.SetDefault("trivia.history_size", 20)
	viper.SetDefault("trivia.category_cooldown", "72h")
	viper.SetDefault("trivia.snapshot_cache_ttl", "5m")
	viper.SetDefault("trivia.results_cache_ttl", "24h")
	viper.SetDefault("trivia.max_regenerations", 2)
	viper.SetDefault("trivia.evaluator.fuzzy_correct", 0.85)
	viper.SetDefault("trivia.evaluator.fuzzy_close", 0.6)
	viper.SetDefault("trivia.evaluator.overlap_close", 0.75)
	viper.SetDefault("trivia.evaluator.numeric_relative", 0.05)
	viper.SetDefault("trivia.evaluator.numeric_absolute", 1)
	viper.SetDefault("trivia.evaluator.numeric_max_delta", 2)
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("No config file found, using defaults and environment")
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		DB: DBConfig{
			Driver:   viper.GetString("db.driver"),
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
			SSLMode:  viper.GetString("db.sslmode"),
			Path:     viper.GetString("db.path"),
		},
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
			Issuer:    viper.GetString("auth.issuer"),
			TokenTTL:  viper.GetDuration("auth.token_ttl"),
		},
		LLM: LLMConfig{
			Provider:  viper.GetString("llm.provider"),
			Timeout:   viper.GetDuration("llm.timeout"),
			MaxTokens: viper.GetInt("llm.max_tokens"),
			Ollama: OllamaConfig{
				ServerURL: viper.GetString("llm.ollama.server_url"),
				Model:     viper.GetString("llm.ollama.model"),
			},
			OpenAI: ProviderConfig{
				APIKey: viper.GetString("llm.openai.api_key"),
				Model:  viper.GetString("llm.openai.model"),
			},
			Anthropic: ProviderConfig{
				APIKey: viper.GetString("llm.anthropic.api_key"),
				Model:  viper.GetString("llm.anthropic.model"),
			},
			Gemini: ProviderConfig{
				APIKey: viper.GetString("llm.gemini.api_key"),
				Model:  viper.GetString("llm.gemini.model"),
			},
		},
		Trivia: TriviaConfig{
			ApproverID:       viper.GetString("trivia.approver_id"),
			ApprovalTimeout:  viper.GetDuration("trivia.approval_timeout"),
			SessionDuration:  viper.GetDuration("trivia.session_duration"),
			RoundInterval:    viper.GetDuration("trivia.round_interval"),
			HistorySize:      viper.GetInt("trivia.history_size"),
			CategoryCooldown: viper.GetDuration("trivia.category_cooldown"),
			SnapshotCacheTTL: viper.GetDuration("trivia.snapshot_cache_ttl"),
			ResultsCacheTTL:  viper.GetDuration("trivia.results_cache_ttl"),
			MaxRegenerations: viper.GetInt("trivia.max_regenerations"),
			Evaluator: EvaluatorConfig{
				FuzzyCorrect:    viper.GetFloat64("trivia.evaluator.fuzzy_correct"),
				FuzzyClose:      viper.GetFloat64("trivia.evaluator.fuzzy_close"),
				OverlapClose:    viper.GetFloat64("trivia.evaluator.overlap_close"),
				NumericRelative: viper.GetFloat64("trivia.evaluator.numeric_relative"),
				NumericAbsolute: viper.GetFloat64("trivia.evaluator.numeric_absolute"),
				NumericMaxDelta: viper.GetFloat64("trivia.evaluator.numeric_max_delta"),
			},
		},
	}

	// Override with environment variables if set
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.DB.Driver = driver
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.DB.Host = host
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		config.DB.DBName = dbname
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		config.DB.Path = path
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.Anthropic.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.Gemini.APIKey = key
	}
	if approver := os.Getenv("TRIVIA_APPROVER_ID"); approver != "" {
		config.Trivia.ApproverID = approver
	}

	return config, nil
}

// GetDSN returns the data source name for the configured driver.
func (c *Config) GetDSN() string {
	if c.DB.Driver == "sqlite" {
		return c.DB.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}
