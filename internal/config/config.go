package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. It is built once in main
// and passed by value into every component that needs it; nothing reads the
// environment after startup.
type Config struct {
	Env  string // application environment ("dev", "test", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional, empty allowed
	DBHost string
	DBPort string
	DBName string

	RedisAddr     string // host:port of the session cache
	RedisPassword string // optional
	RedisDB       int

	JWTSecret      string // shared secret for all signed tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	KakaoClientID     string // Kakao REST API key (empty disables Kakao login)
	NaverClientID     string // Naver client id (empty disables Naver login)
	NaverClientSecret string

	AMQPURL string // RabbitMQ URL for auth event fan-out (optional)

	RateLimit RateLimitConfig
}

// IsProd reports whether the service runs with production hardening
// (Secure cookies among other things).
func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Load reads configuration from environment variables. Required variables
// are enforced by must() and missing values cause the process to exit.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		RedisAddr:      must("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),

		KakaoClientID:     os.Getenv("KAKAO_REST_API_KEY"),
		NaverClientID:     os.Getenv("NAVER_CLIENT_ID"),
		NaverClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),

		AMQPURL: os.Getenv("RABBITMQ_URL"),

		RateLimit: LoadRateLimitConfig(),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an optional integer variable, falling back to def when the
// variable is unset. A set-but-malformed value is a configuration mistake
// and aborts startup.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
