package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Stream struct {
		WebSocketURL      string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443" validate:"required"`
		Symbols           []string      `yaml:"symbols"`
		HealthInterval    time.Duration `yaml:"health_interval" default:"5s"`
		KeepaliveInterval time.Duration `yaml:"keepalive_interval" default:"30s"`
		BackoffMin        time.Duration `yaml:"backoff_min" default:"1s"`
		BackoffMax        time.Duration `yaml:"backoff_max" default:"60s"`
		MaxRetries        int           `yaml:"max_retries" default:"10"`
		RecoveryDelay     time.Duration `yaml:"recovery_delay" default:"5m"`
		SubscriberBuffer  int           `yaml:"subscriber_buffer" default:"256"`
		MaxRPS            int           `yaml:"max_rps" default:"20"`
		PipelineBuffer    int           `yaml:"pipeline_buffer" default:"1000"`
	} `yaml:"stream"`

	Registry struct {
		DefaultVenue string `yaml:"default_venue" default:"BINANCE"`
	} `yaml:"registry"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" validate:"required,min=1"`
		Topic        string   `yaml:"topic" default:"market.ticks"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"tradepulse"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host" validate:"required"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradepulse"`
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

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Signals struct {
		RSIOversold        float64       `yaml:"rsi_oversold" default:"30" validate:"gt=0,lt=100"`
		RSIOverbought      float64       `yaml:"rsi_overbought" default:"70" validate:"gt=0,lt=100"`
		BollingerProximity float64       `yaml:"bollinger_proximity" default:"0.1"`
		SRProximity        float64       `yaml:"sr_proximity" default:"0.01"`
		VolumeBreakout     float64       `yaml:"volume_breakout" default:"2.0"`
		EnabledSources     []string      `yaml:"enabled_sources"` // empty means all
		Concurrent         bool          `yaml:"concurrent" default:"true"`
		CandleWindow       int           `yaml:"candle_window" default:"60" validate:"gte=35"`
		MinConfidence      float64       `yaml:"min_confidence" default:"50"`
		MinStrength        float64       `yaml:"min_strength" default:"40"`
		TTL                time.Duration `yaml:"ttl" default:"15m"`
		MaxPerSymbol       int           `yaml:"max_per_symbol" default:"5"`
		DedupWindow        time.Duration `yaml:"dedup_window" default:"5m"`
		DedupPriceDelta    float64       `yaml:"dedup_price_delta" default:"0.01"`
		EvalInterval       time.Duration `yaml:"eval_interval" default:"1m"`
		Timeframe          string        `yaml:"timeframe" default:"1h"`

		ConsensusThreshold float64       `yaml:"consensus_threshold" default:"0.6" validate:"gt=0,lte=1"`
		ConflictDiscount   float64       `yaml:"conflict_discount" default:"0.5" validate:"gt=0,lte=1"`
		DecayWindow        time.Duration `yaml:"decay_window" default:"30m"`
		DecayFloor         float64       `yaml:"decay_floor" default:"0.1"`
		ConsensusCacheTTL  time.Duration `yaml:"consensus_cache_ttl" default:"30s"`

		ScoreWeights struct {
			Confidence           float64 `yaml:"confidence" default:"0.30"`
			Strength             float64 `yaml:"strength" default:"0.25"`
			Reliability          float64 `yaml:"reliability" default:"0.15"`
			MarketCondition      float64 `yaml:"market_condition" default:"0.10"`
			SupportingIndicators float64 `yaml:"supporting_indicators" default:"0.10"`
			VolumeConfirmation   float64 `yaml:"volume_confirmation" default:"0.10"`
		} `yaml:"score_weights"`
	} `yaml:"signals"`

	Sync struct {
		BatchSize   int `yaml:"batch_size" default:"50" validate:"gt=0"`
		Concurrency int `yaml:"concurrency" default:"4" validate:"gt=0"`
	} `yaml:"sync"`

	Hub struct {
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
		StaleMaxAge     time.Duration `yaml:"stale_max_age" default:"30m"`
	} `yaml:"hub"`
}

// Load reads a YAML configuration file, applies defaults, and validates.
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

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
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

	if v := os.Getenv("STREAM_WS_URL"); v != "" {
		c.Stream.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		c.Server.Port = p
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks structural constraints plus the cross-field rules the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Stream.BackoffMin <= 0 || c.Stream.BackoffMax < c.Stream.BackoffMin {
		return fmt.Errorf("stream backoff bounds invalid: min=%v max=%v", c.Stream.BackoffMin, c.Stream.BackoffMax)
	}
	if c.Signals.RSIOversold >= c.Signals.RSIOverbought {
		return fmt.Errorf("rsi_oversold (%v) must be below rsi_overbought (%v)", c.Signals.RSIOversold, c.Signals.RSIOverbought)
	}
	return nil
}
