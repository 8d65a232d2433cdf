// Package config loads process configuration: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ratelimitconfig "shadow/internal/ratelimit/config"
	"shadow/pkg/platform/middleware/metadata"
	platformstrings "shadow/pkg/platform/strings"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Server    Server          `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	Solana    SolanaConfig    `yaml:"solana"`
	Content   ContentConfig   `yaml:"content"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Log       LogConfig       `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means client IPs always come from the connection peer.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s Server) Proxies() (metadata.TrustedProxies, error) {
	return metadata.ParseTrustedProxies(s.TrustedProxies)
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerWindow int  `yaml:"requests_per_window"`
	WindowSeconds     int  `yaml:"window_seconds"`
	CleanupThreshold  int  `yaml:"cleanup_threshold"`
}

// Admission converts the section into the immutable value the admission controller takes.
func (r RateLimitConfig) Admission() ratelimitconfig.Config {
	return ratelimitconfig.Config{
		RequestsPerWindow: r.RequestsPerWindow,
		Window:            time.Duration(r.WindowSeconds) * time.Second,
		CleanupThreshold:  r.CleanupThreshold,
	}
}

type StoreConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type AuthConfig struct {
	JWTSigningKey string `yaml:"jwt_signing_key"`
	Issuer        string `yaml:"issuer"`
}

// AdminConfig enables the operator routes under /admin when Token is set.
type AdminConfig struct {
	Token string `yaml:"token"`
}

type SolanaConfig struct {
	RPCURL            string        `yaml:"rpc_url"`
	Commitment        string        `yaml:"commitment"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type ContentConfig struct {
	PinataJWT      string        `yaml:"pinata_jwt"`
	PinataAPIURL   string        `yaml:"pinata_api_url"`
	IPFSGateway    string        `yaml:"ipfs_gateway"`
	BundlrNodeURL  string        `yaml:"bundlr_node_url"`
	ArweaveGateway string        `yaml:"arweave_gateway"`
	S3Bucket       string        `yaml:"s3_bucket"`
	S3Region       string        `yaml:"s3_region"`
	S3Endpoint     string        `yaml:"s3_endpoint"`
	S3AccessKey    string        `yaml:"s3_access_key"`
	S3SecretKey    string        `yaml:"s3_secret_key"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 60,
			WindowSeconds:     60,
			CleanupThreshold:  10000,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Timeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Auth: AuthConfig{
			Issuer: "shadow-auth",
		},
		Solana: SolanaConfig{
			RPCURL:            "https://api.devnet.solana.com",
			Commitment:        "confirmed",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Content: ContentConfig{
			PinataAPIURL:   "https://api.pinata.cloud",
			IPFSGateway:    "https://gateway.pinata.cloud/ipfs/",
			ArweaveGateway: "https://arweave.net/",
			FetchTimeout:   30 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "shadow.audit",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads defaults, then the YAML file at path (skipped when empty), then
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv loads configuration using SHADOW_CONFIG as the optional file path.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("SHADOW_CONFIG"))
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.RateLimit.Admission().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit: %w", err))
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres store requires DATABASE_URL"))
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis store requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if _, err := c.Server.Proxies(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	seconds := func(name string, dst *time.Duration) {
		var n int
		if v, ok := lookup(name); ok && v != "" {
			num(name, &n)
			if n > 0 {
				*dst = time.Duration(n) * time.Second
			}
		}
	}

	str("HOST", &c.Server.Host)
	num("PORT", &c.Server.Port)
	if v, ok := lookup("TRUSTED_PROXIES"); ok && v != "" {
		c.Server.TrustedProxies = platformstrings.SplitUnique(v, ",")
	}

	flag("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	num("RATE_LIMIT_RPM", &c.RateLimit.RequestsPerWindow)
	num("RATE_LIMIT_WINDOW_SECONDS", &c.RateLimit.WindowSeconds)
	num("RATE_LIMIT_CLEANUP_THRESHOLD", &c.RateLimit.CleanupThreshold)

	str("STORE_BACKEND", &c.Store.Backend)
	seconds("STORE_TIMEOUT_SECONDS", &c.Store.Timeout)
	str("DATABASE_URL", &c.Postgres.DSN)
	num("DATABASE_MAX_POOL_SIZE", &c.Postgres.MaxOpenConns)
	str("REDIS_URL", &c.Redis.URL)

	str("JWT_SIGNING_KEY", &c.Auth.JWTSigningKey)
	str("JWT_ISSUER", &c.Auth.Issuer)

	str("ADMIN_API_TOKEN", &c.Admin.Token)

	str("SOLANA_RPC_URL", &c.Solana.RPCURL)
	str("SOLANA_COMMITMENT", &c.Solana.Commitment)
	seconds("SOLANA_TIMEOUT_SECONDS", &c.Solana.Timeout)

	str("PINATA_JWT", &c.Content.PinataJWT)
	str("PINATA_API_URL", &c.Content.PinataAPIURL)
	str("IPFS_GATEWAY", &c.Content.IPFSGateway)
	str("BUNDLR_NODE_URL", &c.Content.BundlrNodeURL)
	str("ARWEAVE_GATEWAY", &c.Content.ArweaveGateway)
	str("S3_BUCKET", &c.Content.S3Bucket)
	str("S3_REGION", &c.Content.S3Region)
	str("S3_ENDPOINT", &c.Content.S3Endpoint)
	str("S3_ACCESS_KEY", &c.Content.S3AccessKey)
	str("S3_SECRET_KEY", &c.Content.S3SecretKey)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = platformstrings.SplitUnique(v, ",")
	}
	str("KAFKA_AUDIT_TOPIC", &c.Kafka.Topic)

	str("LOG_LEVEL", &c.Log.Level)

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	return errors.Join(errs...)
}
