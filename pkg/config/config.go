package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Tier is one credibility band entry; first matching pattern wins.
type Tier struct {
	Pattern string  `yaml:"pattern"`
	Tier    int     `yaml:"tier"`
	Score   float64 `yaml:"score"`
}

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Logging     struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Monitor struct {
		Symbols     []string      `yaml:"symbols"`
		Interval    time.Duration `yaml:"interval" default:"5m"`
		Window      int           `yaml:"window" default:"30"`
		Concurrency int           `yaml:"concurrency" default:"4"`
		ReportsDir  string        `yaml:"reports_dir" default:"reports"`
	} `yaml:"monitor"`
	Anomaly struct {
		TriggerThreshold float64 `yaml:"trigger_threshold" default:"5"`
		PriceThreshold   float64 `yaml:"price_threshold" default:"0.10"`
		VolumeThreshold  float64 `yaml:"volume_threshold" default:"3.0"`
		GapThreshold     float64 `yaml:"gap_threshold" default:"0.02"`
		RSIPeriod        int     `yaml:"rsi_period" default:"14"`
		MinWindow        int     `yaml:"min_window" default:"14"`
		TrailingWindow   int     `yaml:"trailing_window" default:"20"`
		FactorCaps       struct {
			Price      float64 `yaml:"price" default:"2"`
			Volume     float64 `yaml:"volume" default:"2"`
			RSI        float64 `yaml:"rsi" default:"1"`
			Volatility float64 `yaml:"volatility" default:"1"`
			Gap        float64 `yaml:"gap" default:"1"`
		} `yaml:"factor_caps"`
	} `yaml:"anomaly"`
	Investigation struct {
		AcceptConfidence    float64       `yaml:"accept_confidence" default:"0.70"`
		PartialFloor        float64       `yaml:"partial_floor" default:"0.40"`
		MaxRetries          int           `yaml:"max_retries" default:"3"`
		TopKEvidence        int           `yaml:"top_k_evidence" default:"5"`
		Concurrency         int           `yaml:"concurrency" default:"4"`
		QueriesPerIteration int           `yaml:"queries_per_iteration" default:"3"`
		MaxQueryLength      int           `yaml:"max_query_length" default:"250"`
		ExpertRoles         []string      `yaml:"expert_roles"`
		CollaboratorTimeout time.Duration `yaml:"collaborator_timeout" default:"30s"`
	} `yaml:"investigation"`
	Aggregation struct {
		CredibilityWeight float64 `yaml:"credibility_weight" default:"0.4"`
		RelevanceWeight   float64 `yaml:"relevance_weight" default:"0.3"`
		SpecificityWeight float64 `yaml:"specificity_weight" default:"0.3"`
	} `yaml:"aggregation"`
	CredibilityTiers []Tier `yaml:"credibility_tiers"`
	LLM              struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"gpt-4o-mini"`
		Temperature float64       `yaml:"temperature" default:"0.4"`
		MaxTokens   int           `yaml:"max_tokens" default:"1024"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"llm"`
	Search struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.tavily.com"`
		APIKey         string        `yaml:"api_key"`
		MaxResults     int           `yaml:"max_results" default:"5"`
		Days           int           `yaml:"days" default:"7"`
		Depth          string        `yaml:"depth" default:"advanced"`
		Timeout        time.Duration `yaml:"timeout" default:"20s"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"2"`
	} `yaml:"search"`
	MarketData struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"market_data"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"stream"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalTopic  string   `yaml:"signal_topic" default:"sleuth.signals"`
		VerdictTopic string   `yaml:"verdict_topic" default:"sleuth.verdicts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		MaxAttempts  int      `yaml:"max_attempts" default:"3"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"sleuth"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Cache struct {
		BarTTL    time.Duration `yaml:"bar_ttl" default:"1m"`
		SearchTTL time.Duration `yaml:"search_ttl" default:"10m"`
		Redis     struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Monitor.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("MARKET_DATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Monitor.Symbols) == 0 {
		return fmt.Errorf("monitor.symbols cannot be empty")
	}
	if c.Anomaly.MinWindow < 2 {
		return fmt.Errorf("anomaly.min_window must be at least 2")
	}
	if c.Investigation.MaxRetries < 0 {
		return fmt.Errorf("investigation.max_retries cannot be negative")
	}
	if c.Investigation.PartialFloor > c.Investigation.AcceptConfidence {
		return fmt.Errorf("investigation.partial_floor cannot exceed accept_confidence")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Stream.Enabled && c.Stream.WebSocketURL == "" {
		return fmt.Errorf("stream.websocket_url required when stream is enabled")
	}
	return nil
}
