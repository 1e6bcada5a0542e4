package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Groq      GroqConfig
	R2        R2Config
	Audio     AudioConfig
	Mongo     MongoConfig
	Ingest    IngestConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	IngestPerHour int
}

// GroqConfig points at the Whisper transcription endpoint
type GroqConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// AudioConfig selects how audio is pulled out of downloaded video
type AudioConfig struct {
	Mode       string // "service" or "ffmpeg"
	ServiceURL string
	Timeout    int // seconds
	FFmpegPath string
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type IngestConfig struct {
	Concurrency          int
	MaxPending           int
	BatchConcurrency     int
	ScratchDir           string
	VideoTimeout         time.Duration
	TranscriptionTimeout time.Duration
	IncludeCourseContent bool
	PanoptoHostFormat    string
	CanvasHostFormat     string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GROQ_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("MONGO_URI")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.ingest_per_hour", "RATELIMIT_INGEST_PER_HOUR")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_TRANSCRIPTION_MODEL")
	_ = viper.BindEnv("groq.requests_per_minute", "GROQ_REQUESTS_PER_MINUTE")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("audio.mode", "AUDIO_MODE")
	_ = viper.BindEnv("audio.service_url", "AUDIO_SERVICE_URL")
	_ = viper.BindEnv("audio.timeout", "AUDIO_SERVICE_TIMEOUT")
	_ = viper.BindEnv("audio.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("mongo.uri", "MONGO_URI")
	_ = viper.BindEnv("mongo.database", "MONGO_DATABASE")
	_ = viper.BindEnv("mongo.collection", "MONGO_COLLECTION")
	_ = viper.BindEnv("ingest.concurrency", "INGEST_CONCURRENCY")
	_ = viper.BindEnv("ingest.max_pending", "INGEST_MAX_PENDING")
	_ = viper.BindEnv("ingest.batch_concurrency", "INGEST_BATCH_CONCURRENCY")
	_ = viper.BindEnv("ingest.scratch_dir", "INGEST_SCRATCH_DIR")
	_ = viper.BindEnv("ingest.video_timeout", "INGEST_VIDEO_TIMEOUT")
	_ = viper.BindEnv("ingest.transcription_timeout", "INGEST_TRANSCRIPTION_TIMEOUT")
	_ = viper.BindEnv("ingest.include_course_content", "INGEST_INCLUDE_COURSE_CONTENT")
	_ = viper.BindEnv("ingest.panopto_host_format", "PANOPTO_HOST_FORMAT")
	_ = viper.BindEnv("ingest.canvas_host_format", "CANVAS_HOST_FORMAT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.ingest_per_hour", 10)

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "whisper-large-v3")
	viper.SetDefault("groq.requests_per_minute", 20)

	// Audio defaults
	viper.SetDefault("audio.mode", "service")
	viper.SetDefault("audio.service_url", "http://localhost:8084")
	viper.SetDefault("audio.timeout", 300)
	viper.SetDefault("audio.ffmpeg_path", "ffmpeg")

	// Mongo defaults
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "clarity")
	viper.SetDefault("mongo.collection", "documents")

	// Ingest defaults
	viper.SetDefault("ingest.concurrency", 1)
	viper.SetDefault("ingest.max_pending", 0)
	viper.SetDefault("ingest.batch_concurrency", 2)
	viper.SetDefault("ingest.scratch_dir", os.TempDir())
	viper.SetDefault("ingest.video_timeout", "30m")
	viper.SetDefault("ingest.transcription_timeout", "20m")
	viper.SetDefault("ingest.include_course_content", true)
	viper.SetDefault("ingest.panopto_host_format", "https://%s.hosted.panopto.com")
	viper.SetDefault("ingest.canvas_host_format", "https://%s.instructure.com")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			IngestPerHour: viper.GetInt("ratelimit.ingest_per_hour"),
		},
		Groq: GroqConfig{
			APIKey:            viper.GetString("groq.api_key"),
			BaseURL:           viper.GetString("groq.base_url"),
			Model:             viper.GetString("groq.model"),
			RequestsPerMinute: viper.GetInt("groq.requests_per_minute"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Audio: AudioConfig{
			Mode:       strings.ToLower(viper.GetString("audio.mode")),
			ServiceURL: viper.GetString("audio.service_url"),
			Timeout:    viper.GetInt("audio.timeout"),
			FFmpegPath: viper.GetString("audio.ffmpeg_path"),
		},
		Mongo: MongoConfig{
			URI:        viper.GetString("mongo.uri"),
			Database:   viper.GetString("mongo.database"),
			Collection: viper.GetString("mongo.collection"),
		},
		Ingest: IngestConfig{
			Concurrency:          viper.GetInt("ingest.concurrency"),
			MaxPending:           viper.GetInt("ingest.max_pending"),
			BatchConcurrency:     viper.GetInt("ingest.batch_concurrency"),
			ScratchDir:           viper.GetString("ingest.scratch_dir"),
			VideoTimeout:         viper.GetDuration("ingest.video_timeout"),
			TranscriptionTimeout: viper.GetDuration("ingest.transcription_timeout"),
			IncludeCourseContent: viper.GetBool("ingest.include_course_content"),
			PanoptoHostFormat:    viper.GetString("ingest.panopto_host_format"),
			CanvasHostFormat:     viper.GetString("ingest.canvas_host_format"),
		},
	}

	return cfg, nil
}

// Missing returns the names of required settings that are empty. The
// transcription key is required before any batch may start.
func (c *Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.Groq.APIKey) == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if c.Audio.Mode == "service" && strings.TrimSpace(c.Audio.ServiceURL) == "" {
		missing = append(missing, "AUDIO_SERVICE_URL")
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		missing = append(missing, "MONGO_URI")
	}
	return missing
}
