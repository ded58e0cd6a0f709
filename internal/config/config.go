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

// Config captures the runtime configuration for the VidTube backend service.
type Config struct {
	AppPort     int
	LogLevel    string
	HTTP        HTTPConfig
	Mongo       MongoConfig
	Tokens      TokenConfig
	Uploads     UploadConfig
	ObjectStore ObjectStoreConfig
	Media       MediaConfig
	RateLimit   RateLimitConfig
	Events      EventsConfig
}

// HTTPConfig bounds how long a connection may take. Uploads need a generous write timeout.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// MongoConfig points the service at its document store.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// TokenConfig controls access and refresh token signing.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	SecureCookies bool
}

// UploadConfig controls where multipart uploads are stashed before relaying.
type UploadConfig struct {
	TempDir  string
	MaxBytes int64
}

// ObjectStoreConfig describes the S3-compatible bucket media is relayed to.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// MediaConfig tunes media processing around uploads and deletes.
type MediaConfig struct {
	FFProbePath        string
	FFProbeTimeout     time.Duration
	MaxImageWidth      int
	MaxImageHeight     int
	DeleteWorkers      int
	DeleteQueueSize    int
	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration
}

// RateLimitConfig guards credential endpoints. RedisAddr switches to a shared limiter.
type RateLimitConfig struct {
	Requests      int
	Window        time.Duration
	Burst         int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// EventsConfig configures the domain event publisher. No brokers disables publishing.
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from VIDTUBE_* environment variables, an optional .env file and an
// optional config file named by VIDTUBE_CONFIG, applying defaults for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VIDTUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv("VIDTUBE_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		AppPort:  v.GetInt("port"),
		LogLevel: v.GetString("log.level"),
		HTTP: HTTPConfig{
			ReadHeaderTimeout: v.GetDuration("http.read_header_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
		},
		Mongo: MongoConfig{
			URI:            v.GetString("mongo.uri"),
			Database:       v.GetString("mongo.database"),
			ConnectTimeout: v.GetDuration("mongo.connect_timeout"),
		},
		Tokens: TokenConfig{
			AccessSecret:  v.GetString("access_token.secret"),
			AccessTTL:     v.GetDuration("access_token.ttl"),
			RefreshSecret: v.GetString("refresh_token.secret"),
			RefreshTTL:    v.GetDuration("refresh_token.ttl"),
			SecureCookies: v.GetBool("cookies.secure"),
		},
		Uploads: UploadConfig{
			TempDir:  v.GetString("uploads.temp_dir"),
			MaxBytes: v.GetInt64("uploads.max_bytes"),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:        v.GetString("object_store.bucket"),
			Region:        v.GetString("object_store.region"),
			Endpoint:      v.GetString("object_store.endpoint"),
			PublicBaseURL: v.GetString("object_store.public_base_url"),
		},
		Media: MediaConfig{
			FFProbePath:        v.GetString("media.ffprobe_path"),
			FFProbeTimeout:     v.GetDuration("media.ffprobe_timeout"),
			MaxImageWidth:      v.GetInt("media.max_image_width"),
			MaxImageHeight:     v.GetInt("media.max_image_height"),
			DeleteWorkers:      v.GetInt("media.delete_workers"),
			DeleteQueueSize:    v.GetInt("media.delete_queue_size"),
			BreakerMaxFailures: v.GetUint32("media.breaker_max_failures"),
			BreakerCooldown:    v.GetDuration("media.breaker_cooldown"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("rate_limit.requests"),
			Window:        v.GetDuration("rate_limit.window"),
			Burst:         v.GetInt("rate_limit.burst"),
			RedisAddr:     v.GetString("rate_limit.redis_addr"),
			RedisPassword: v.GetString("rate_limit.redis_password"),
			RedisDB:       v.GetInt("rate_limit.redis_db"),
		},
		Events: EventsConfig{
			Brokers: splitList(v.GetString("events.brokers")),
			Topic:   v.GetString("events.topic"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 5*time.Minute)
	v.SetDefault("http.idle_timeout", time.Minute)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "vidtube")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)

	v.SetDefault("access_token.ttl", 24*time.Hour)
	v.SetDefault("refresh_token.ttl", 10*24*time.Hour)
	v.SetDefault("cookies.secure", true)

	v.SetDefault("uploads.temp_dir", os.TempDir())
	v.SetDefault("uploads.max_bytes", int64(512<<20))

	v.SetDefault("object_store.region", "us-east-1")

	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.ffprobe_timeout", 30*time.Second)
	v.SetDefault("media.max_image_width", 1920)
	v.SetDefault("media.max_image_height", 1080)
	v.SetDefault("media.delete_workers", 2)
	v.SetDefault("media.delete_queue_size", 64)
	v.SetDefault("media.breaker_max_failures", 5)
	v.SetDefault("media.breaker_cooldown", 30*time.Second)

	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("events.topic", "vidtube.events")
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Tokens.AccessSecret) == "" {
		errs = append(errs, errors.New("VIDTUBE_ACCESS_TOKEN_SECRET is required"))
	}
	if strings.TrimSpace(c.Tokens.RefreshSecret) == "" {
		errs = append(errs, errors.New("VIDTUBE_REFRESH_TOKEN_SECRET is required"))
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		errs = append(errs, errors.New("VIDTUBE_MONGO_URI is required"))
	}
	return errors.Join(errs...)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
