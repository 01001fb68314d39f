package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Corpus     CorpusConfig
	Chunking   ChunkingConfig
	Retrieval  RetrievalConfig
	Vector     VectorConfig
	LLM        LLMConfig
	Escalation EscalationConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          int
	WriteTimeout         int
	BodyLimit            int
	RateLimitPerMinute   int
	MaxQuestionLength    int
	AllowedOrigins       []string
}

type CorpusConfig struct {
	Path            string
	Watch           bool
	WatchDebounceMS int
}

type ChunkingConfig struct {
	Size    int
	Overlap int
}

type RetrievalConfig struct {
	// Mode is "threshold" (drop weak matches before the model sees them)
	// or "top_k" (pass everything through and let the model judge).
	Mode          string
	TopK          int
	MinSimilarity float64
}

type VectorConfig struct {
	// Driver selects the vector store backend: "memory" or "milvus".
	Driver     string
	Endpoint   string
	Collection string
	Dim        int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type EscalationConfig struct {
	Team string
	Note string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLHours int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml (explicit path wins, then ., ./config,
// /etc/askdesk) and applies ASKDESK_* environment overrides.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/askdesk")
	}

	viper.SetEnvPrefix("ASKDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.rateLimitPerMinute", 60)
	viper.SetDefault("server.maxQuestionLength", 2000)
	viper.SetDefault("server.allowedOrigins", []string{"*"})

	viper.SetDefault("corpus.path", "./docs")
	viper.SetDefault("corpus.watch", false)
	viper.SetDefault("corpus.watchDebounceMS", 500)

	viper.SetDefault("chunking.size", 800)
	viper.SetDefault("chunking.overlap", 150)

	viper.SetDefault("retrieval.mode", "threshold")
	viper.SetDefault("retrieval.topK", 4)
	viper.SetDefault("retrieval.minSimilarity", 0.7)

	viper.SetDefault("vector.driver", "memory")
	viper.SetDefault("vector.endpoint", "localhost:19530")
	viper.SetDefault("vector.collection", "support_kb")
	viper.SetDefault("vector.dim", 1536)

	viper.SetDefault("llm.model", "gpt-4.1-mini")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("escalation.team", "Tier-2 Support")
	viper.SetDefault("escalation.note", "Escalated because documentation was insufficient or ambiguous.")

	viper.SetDefault("sqlite.path", "./data/askdesk.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlHours", 24)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
