package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Exchange struct {
		ProductID      string        `yaml:"product_id"`
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		BaseURL        string        `yaml:"base_url"`
		StreamURL      string        `yaml:"stream_url"`
		StreamEnabled  bool          `yaml:"stream_enabled"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		FetchRetries   int           `yaml:"fetch_retries"`
		RetryDelay     time.Duration `yaml:"retry_delay"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	} `yaml:"exchange"`
	Trading struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		OrderCooldown time.Duration `yaml:"order_cooldown"`
		CandleCount   int           `yaml:"candle_count"`
		DryRun        bool          `yaml:"dry_run"`
		AllowLive     bool          `yaml:"allow_live"`
	} `yaml:"trading"`
	Learning struct {
		Enabled   bool          `yaml:"enabled"`
		Days      int           `yaml:"days"`
		Interval  time.Duration `yaml:"interval"`
		Period    int           `yaml:"rsi_period"`
		EntryMin  int           `yaml:"entry_min"`
		EntryMax  int           `yaml:"entry_max"`
		ExitMin   int           `yaml:"exit_min"`
		ExitMax   int           `yaml:"exit_max"`
		MinTrades int           `yaml:"min_trades"`
		// Candle sizes the grid search tries, e.g. ONE_HOUR, SIX_HOUR.
		Granularities []string `yaml:"granularities"`
	} `yaml:"learning"`
	State struct {
		DataDir       string `yaml:"data_dir"`
		ParamsFile    string `yaml:"params_file"`
		PortfolioFile string `yaml:"portfolio_file"`
		PortfolioCSV  string `yaml:"portfolio_csv"`
		TradesFile    string `yaml:"trades_file"`
		StatusFile    string `yaml:"status_file"`
	} `yaml:"state"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		Table        string        `yaml:"table"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables before validating, so credentials can come from the environment
// alone and never need to live in the file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COINBASE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("COINBASE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("PRODUCT_ID"); v != "" {
		c.Exchange.ProductID = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		c.Trading.DryRun = parseBool(v, c.Trading.DryRun)
	}
	if v := os.Getenv("ALLOW_LIVE"); v != "" {
		c.Trading.AllowLive = parseBool(v, c.Trading.AllowLive)
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		c.Trading.PollInterval = parseSeconds(v, c.Trading.PollInterval)
	}
	if v := os.Getenv("ORDER_COOLDOWN_SECONDS"); v != "" {
		c.Trading.OrderCooldown = parseSeconds(v, c.Trading.OrderCooldown)
	}
	if v := os.Getenv("LEARN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Learning.Days = n
		}
	}
	if v := os.Getenv("LEARN_INTERVAL_SECONDS"); v != "" {
		c.Learning.Interval = parseSeconds(v, c.Learning.Interval)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Exchange.ProductID == "" {
		c.Exchange.ProductID = "DOGE-USD"
	}
	if c.Exchange.RequestTimeout == 0 {
		c.Exchange.RequestTimeout = 15 * time.Second
	}
	if c.Exchange.FetchRetries == 0 {
		c.Exchange.FetchRetries = 3
	}
	if c.Exchange.RetryDelay == 0 {
		c.Exchange.RetryDelay = 2 * time.Second
	}
	if c.Exchange.ReconnectDelay == 0 {
		c.Exchange.ReconnectDelay = 5 * time.Second
	}
	if c.Trading.PollInterval == 0 {
		c.Trading.PollInterval = time.Minute
	}
	if c.Trading.OrderCooldown == 0 {
		c.Trading.OrderCooldown = time.Hour
	}
	if c.Trading.CandleCount == 0 {
		c.Trading.CandleCount = 100
	}
	if c.Learning.Days == 0 {
		c.Learning.Days = 30
	}
	if c.Learning.Period == 0 {
		c.Learning.Period = 14
	}
	if c.Learning.EntryMin == 0 {
		c.Learning.EntryMin = 20
	}
	if c.Learning.EntryMax == 0 {
		c.Learning.EntryMax = 40
	}
	if c.Learning.ExitMin == 0 {
		c.Learning.ExitMin = 45
	}
	if c.Learning.ExitMax == 0 {
		c.Learning.ExitMax = 70
	}
	if c.Learning.MinTrades == 0 {
		c.Learning.MinTrades = 2
	}
	if len(c.Learning.Granularities) == 0 {
		c.Learning.Granularities = []string{"ONE_HOUR", "SIX_HOUR"}
	}
	if c.State.DataDir == "" {
		c.State.DataDir = "data"
	}
	if c.State.ParamsFile == "" {
		c.State.ParamsFile = "params.json"
	}
	if c.State.PortfolioFile == "" {
		c.State.PortfolioFile = "portfolio.json"
	}
	if c.State.PortfolioCSV == "" {
		c.State.PortfolioCSV = "portfolio.csv"
	}
	if c.State.TradesFile == "" {
		c.State.TradesFile = "trades.json"
	}
	if c.State.StatusFile == "" {
		c.State.StatusFile = "status.json"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 10 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Exchange.ProductID == "" {
		return fmt.Errorf("exchange.product_id is required")
	}
	if !strings.Contains(c.Exchange.ProductID, "-") {
		return fmt.Errorf("exchange.product_id must be BASE-QUOTE, got '%s'", c.Exchange.ProductID)
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange credentials are required (set COINBASE_API_KEY and COINBASE_API_SECRET)")
	}
	if c.Trading.AllowLive && c.Trading.DryRun {
		return fmt.Errorf("trading.allow_live and trading.dry_run are mutually exclusive")
	}
	if c.Learning.EntryMin > c.Learning.EntryMax {
		return fmt.Errorf("learning.entry_min must not exceed entry_max")
	}
	if c.Learning.ExitMin > c.Learning.ExitMax {
		return fmt.Errorf("learning.exit_min must not exceed exit_max")
	}
	if c.Learning.EntryMax >= c.Learning.ExitMin {
		return fmt.Errorf("learning entry bounds must sit below exit bounds")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// StatePath joins the data directory with a state file name.
func (c *Config) StatePath(name string) string {
	dir := strings.TrimRight(c.State.DataDir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func parseBool(s string, def bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func parseSeconds(s string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
