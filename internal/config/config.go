// Package config loads server settings from defaults, an optional config file,
// a .env file and GM_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	S3       S3Config       `mapstructure:"s3"`
	Mailer   MailerConfig   `mapstructure:"mailer"`
	EmailJS  EmailJSConfig  `mapstructure:"emailjs"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Store    StoreConfig    `mapstructure:"store"`
	Static   StaticConfig   `mapstructure:"static"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Log      LogConfig      `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the health server
}

// PostgresConfig: an empty DSN runs on in-memory repositories.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig: an empty address keeps verification sessions in process memory.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig: an empty URL discards events.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// S3Config: an empty endpoint disables image uploads.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type MailerConfig struct {
	Provider string `mapstructure:"provider"` // emailjs | smtp | log
}

type EmailJSConfig struct {
	URL        string `mapstructure:"url"`
	ServiceID  string `mapstructure:"service_id"`
	TemplateID string `mapstructure:"template_id"`
	PublicKey  string `mapstructure:"public_key"`
	PrivateKey string `mapstructure:"private_key"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	Encryption string `mapstructure:"encryption"`
}

type JWTConfig struct {
	Key string        `mapstructure:"key"`
	TTL time.Duration `mapstructure:"ttl"`
}

// AdminConfig names the account created on startup when it does not exist yet.
type AdminConfig struct {
	BootstrapEmail    string `mapstructure:"bootstrap_email"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
	BootstrapName     string `mapstructure:"bootstrap_name"`
}

type StoreConfig struct {
	SimulatedLatency time.Duration `mapstructure:"simulated_latency"`
}

type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

type LimiterConfig struct {
	Window   time.Duration `mapstructure:"window"`
	MaxFails int           `mapstructure:"max_fails"`
	BlockFor time.Duration `mapstructure:"block_for"`
}

type LogConfig struct {
	Dev bool `mapstructure:"dev"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_upload_bytes", 10<<20)

	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "listing-images")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.public_url", "")

	v.SetDefault("mailer.provider", "log")
	v.SetDefault("emailjs.url", "")
	v.SetDefault("emailjs.service_id", "")
	v.SetDefault("emailjs.template_id", "")
	v.SetDefault("emailjs.public_key", "")
	v.SetDefault("emailjs.private_key", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.encryption", "starttls")

	v.SetDefault("jwt.key", "")
	v.SetDefault("jwt.ttl", "8h")

	v.SetDefault("admin.bootstrap_email", "")
	v.SetDefault("admin.bootstrap_password", "")
	v.SetDefault("admin.bootstrap_name", "Admin")

	v.SetDefault("store.simulated_latency", "0s")
	v.SetDefault("static.dir", "./web/dist")

	v.SetDefault("limiter.window", "15m")
	v.SetDefault("limiter.max_fails", 5)
	v.SetDefault("limiter.block_for", "15m")

	v.SetDefault("log.dev", false)
}

// Load reads configuration. path may name a config file, a directory holding
// config.yaml, or be empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if fi, err := os.Stat(path); path != "" && err == nil && !fi.IsDir() {
		v.SetConfigFile(path)
	} else {
		if path == "" {
			path = "."
		}
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var problems []error
	if c.JWT.Key == "" {
		problems = append(problems, errors.New("jwt.key is required"))
	}
	if c.JWT.TTL <= 0 {
		problems = append(problems, errors.New("jwt.ttl must be positive"))
	}
	switch c.Mailer.Provider {
	case "log":
	case "emailjs":
		if c.EmailJS.ServiceID == "" || c.EmailJS.TemplateID == "" || c.EmailJS.PublicKey == "" {
			problems = append(problems, errors.New("emailjs.service_id, emailjs.template_id and emailjs.public_key are required"))
		}
	case "smtp":
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			problems = append(problems, errors.New("smtp.host and smtp.from are required"))
		}
	default:
		problems = append(problems, fmt.Errorf("mailer.provider %q is not one of emailjs, smtp, log", c.Mailer.Provider))
	}
	if (c.Admin.BootstrapEmail == "") != (c.Admin.BootstrapPassword == "") {
		problems = append(problems, errors.New("admin.bootstrap_email and admin.bootstrap_password must be set together"))
	}
	if c.Limiter.MaxFails <= 0 {
		problems = append(problems, errors.New("limiter.max_fails must be positive"))
	}
	return errors.Join(problems...)
}
