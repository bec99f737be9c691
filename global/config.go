package global

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"PShare/tools/errs"

	"gopkg.in/yaml.v3"
)

const (
	EventsNone  = "none"
	EventsNats  = "nats"
	EventsKafka = "kafka"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	CorsOrigin      string        `yaml:"cors_origin"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Alg    string        `yaml:"alg"`
	TTL    time.Duration `yaml:"ttl"`
}

type MongoConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize int    `yaml:"max_pool_size"`
}

// RedisConfig enables the presence mirror when Addr is set.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type GatewayConfig struct {
	NodeID          int64         `yaml:"node_id"`
	SendQueueSize   int           `yaml:"send_queue_size"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PongWait        time.Duration `yaml:"pong_wait"`
	WriteWait       time.Duration `yaml:"write_wait"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
}

type EventsConfig struct {
	Driver        string        `yaml:"driver"` // none/nats/kafka
	QueueSize     int           `yaml:"queue_size"`
	Retries       int           `yaml:"retries"`
	Backoff       time.Duration `yaml:"backoff"`
	NatsServers   []string      `yaml:"nats_servers"`
	NatsSubject   string        `yaml:"nats_subject"`
	NatsUser      string        `yaml:"nats_user"`
	NatsPassword  string        `yaml:"nats_password"`
	NatsJetStream bool          `yaml:"nats_jetstream"`
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	KafkaTopic    string        `yaml:"kafka_topic"`
	KafkaVersion  string        `yaml:"kafka_version"`
	KafkaEnsure   bool          `yaml:"kafka_ensure_topic"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the whole process configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Storage StorageConfig `yaml:"storage"`
	Gateway GatewayConfig `yaml:"gateway"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
}

func DefaultConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:            4000,
			CorsOrigin:      "http://localhost:5173",
			ShutdownTimeout: 15 * time.Second,
		},
		JWT:   JWTConfig{Alg: "HS256", TTL: time.Hour},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "pshare", MaxPoolSize: 20},
		Redis: RedisConfig{PoolSize: 10, PresenceTTL: 2 * time.Minute},
		Storage: StorageConfig{
			UploadDir:   "uploads",
			MaxUploadMB: 100,
		},
		Gateway: GatewayConfig{
			NodeID:          1,
			SendQueueSize:   64,
			PingInterval:    25 * time.Second,
			PongWait:        60 * time.Second,
			WriteWait:       10 * time.Second,
			MaxMessageBytes: 64 << 10,
		},
		Events: EventsConfig{
			Driver:       EventsNone,
			QueueSize:    1024,
			Retries:      2,
			Backoff:      200 * time.Millisecond,
			NatsSubject:  "pshare.transfers",
			KafkaTopic:   "pshare.transfers",
			KafkaVersion: "2.1.0",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads defaults, then the YAML file at path (if any), then environment overrides.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errs.WrapMsg(err, "parse config", "path", path)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ConfigPath picks the config file: $PSHARE_CONFIG, else ./config.yaml when present.
func ConfigPath() string {
	if p := os.Getenv("PSHARE_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errs.WrapMsg(err, "invalid PORT", "value", v)
		}
		cfg.Server.Port = p
	}
	str("CORS_ORIGIN", &cfg.Server.CorsOrigin)
	str("JWT_SECRET", &cfg.JWT.Secret)
	str("MONGO_URI", &cfg.Mongo.URI)
	str("MONGO_DB", &cfg.Mongo.Database)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("UPLOAD_DIR", &cfg.Storage.UploadDir)
	str("EVENTS_DRIVER", &cfg.Events.Driver)
	list("NATS_URL", &cfg.Events.NatsServers)
	str("NATS_USER", &cfg.Events.NatsUser)
	str("NATS_PASSWORD", &cfg.Events.NatsPassword)
	list("KAFKA_BROKERS", &cfg.Events.KafkaBrokers)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	return nil
}

func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errs.New("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errs.New("invalid server port", "port", c.Server.Port)
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return errs.New("mongo uri and database are required")
	}
	if c.Storage.UploadDir == "" {
		return errs.New("storage upload_dir is required")
	}
	switch c.Events.Driver {
	case "", EventsNone:
	case EventsNats:
		if len(c.Events.NatsServers) == 0 || c.Events.NatsSubject == "" {
			return errs.New("events driver nats needs nats_servers and nats_subject")
		}
	case EventsKafka:
		if len(c.Events.KafkaBrokers) == 0 || c.Events.KafkaTopic == "" {
			return errs.New("events driver kafka needs kafka_brokers and kafka_topic")
		}
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	return nil
}

func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
