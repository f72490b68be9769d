package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wellcome-app/wizard/codec"
	"github.com/wellcome-app/wizard/id"
)

var streamName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Config struct {
	AppEnv string

	// NATS
	NATSURL      string
	NATSEmbedded bool
	NATSStoreDir string // JetStream storage of the embedded server, temp dir when empty

	// Event store
	EventStream string
	EventCodec  string

	IDGenerator string
	CatalogPath string // empty means the built-in catalogs

	// Submission
	SubmitTimeout  time.Duration
	SubmitSimulate bool
	SubmitDelay    time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")

	cfg.NATSURL = getEnv("NATS_URL", "")
	cfg.NATSEmbedded = getBoolEnv("NATS_EMBEDDED", false)
	cfg.NATSStoreDir = getEnv("NATS_STORE_DIR", "")

	cfg.EventStream = getEnv("EVENT_STREAM", "events")
	cfg.EventCodec = getEnv("EVENT_CODEC", "json")

	cfg.IDGenerator = getEnv("ID_GENERATOR", "nuid")
	cfg.CatalogPath = getEnv("CATALOG_PATH", "")

	cfg.SubmitTimeout = getDuration("SUBMIT_TIMEOUT", 10*time.Second)
	cfg.SubmitSimulate = getBoolEnv("SUBMIT_SIMULATE", false)
	cfg.SubmitDelay = getDuration("SUBMIT_DELAY", 2*time.Second)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if !c.SubmitSimulate && !c.NATSEmbedded && c.NATSURL == "" {
		return fmt.Errorf("missing NATS_URL (required unless NATS_EMBEDDED or SUBMIT_SIMULATE is set)")
	}
	if c.AppEnv != "dev" && c.NATSEmbedded {
		return fmt.Errorf("NATS_EMBEDDED is only allowed when APP_ENV=dev")
	}
	if !streamName.MatchString(c.EventStream) {
		return fmt.Errorf("invalid EVENT_STREAM %q", c.EventStream)
	}
	if _, err := codec.Get(c.EventCodec); err != nil {
		return fmt.Errorf("invalid EVENT_CODEC: %w", err)
	}
	if _, err := id.Named(c.IDGenerator); err != nil {
		return fmt.Errorf("invalid ID_GENERATOR: %w", err)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be positive")
	}
	if c.SubmitDelay < 0 {
		return fmt.Errorf("SUBMIT_DELAY must not be negative")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
