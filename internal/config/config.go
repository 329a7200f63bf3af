package config

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config covers all three binaries; each main reads the fields it needs.
type Config struct {
	// Server
	ListenAddr string
	RedisURL   string // empty means in-memory engagement store

	// Client / simulator
	APIURL string
	Tab    string

	// Kafka event mirror / feed (optional on both sides)
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	UseKafkaFeed bool
}

// Parse reads flags with environment fallback. A .env file in the
// working directory is honored when present.
func Parse(name string, args []string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var brokers string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", "", "Server listen address")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for engagement tallies (default in-memory)")
	fs.StringVar(&cfg.APIURL, "api", "", "Poll service base URL")
	fs.StringVar(&cfg.Tab, "tab", "trending", "Active tab: trending, recent or sports")
	fs.StringVar(&brokers, "kafka-brokers", "", "Comma-separated Kafka brokers for the event mirror/feed")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for mirrored events")
	fs.StringVar(&cfg.KafkaGroupID, "kafka-group", "", "Kafka consumer group for the event feed")
	fs.BoolVar(&cfg.UseKafkaFeed, "kafka-feed", false, "Consume events from Kafka instead of the websocket")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = envOr("LISTEN_ADDR", ":8000")
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = envOr("API_URL", "http://localhost:8000")
	}
	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKERS")
	}
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = envOr("KAFKA_TOPIC", "poll-events")
	}
	if cfg.KafkaGroupID == "" {
		cfg.KafkaGroupID = envOr("KAFKA_GROUP_ID", "quickpoll-client")
	}

	return cfg, nil
}

// WebsocketURL derives the push endpoint from the API base URL.
func (c Config) WebsocketURL() string {
	url := c.APIURL
	if strings.HasPrefix(url, "https") {
		url = "wss" + strings.TrimPrefix(url, "https")
	} else if strings.HasPrefix(url, "http") {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return url + "/ws"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
