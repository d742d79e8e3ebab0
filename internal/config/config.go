package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// minProdSecretLen is the shortest HS256 secret accepted when APP_ENV=prod.
const minProdSecretLen = 32

var ErrMissingSecret = errors.New("config: JWT_SECRET or JWT_SECRET_FILE must be set")

type Config struct {
	Env         string
	Port        int
	ServiceName string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	DBURL       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	BcryptCost            int
	HashConcurrency       int
	EnforceUniqueUsername bool
	IdentityCacheTTL      time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	AuthRateLimit      int
	AuthRateWindow     time.Duration

	OTLPEndpoint   string
	MoviesSeedFile string
}

// Load reads the process environment (optionally preloaded from a .env file)
// and fails fast on anything the server cannot start without.
func Load() (Config, error) {
	return load(true)
}

// LoadStore is Load for tools that only talk to the store. The JWT secret is
// read if present but not required.
func LoadStore() (Config, error) {
	return load(false)
}

func load(requireSecret bool) (Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        p.int("PORT", 8080),
		ServiceName: getEnv("SERVICE_NAME", "movieapi"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "movies"),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),

		JWTIssuer: getEnv("JWT_ISSUER", "movieapi"),
		JWTTTL:    p.duration("JWT_TTL", time.Hour),

		BcryptCost:            p.int("BCRYPT_COST", 10),
		HashConcurrency:       p.int("HASH_CONCURRENCY", runtime.GOMAXPROCS(0)),
		EnforceUniqueUsername: p.bool("ENFORCE_UNIQUE_USERNAME", false),
		IdentityCacheTTL:      p.duration("IDENTITY_CACHE_TTL", 30*time.Second),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		MaxBodyBytes:       int64(p.int("MAX_BODY_BYTES", 1<<20)),
		AuthRateLimit:      p.int("AUTH_RATE_LIMIT", 20),
		AuthRateWindow:     p.duration("AUTH_RATE_WINDOW", time.Minute),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		MoviesSeedFile: getEnv("MOVIES_SEED_FILE", ""),
	}

	secret, err := loadSecret()
	if err != nil && (requireSecret || !errors.Is(err, ErrMissingSecret)) {
		errs = append(errs, err)
	}
	cfg.JWTSecret = secret

	errs = append(errs, cfg.validate()...)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error

	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.Env == "prod" && c.JWTSecret != "" && len(c.JWTSecret) < minProdSecretLen {
		errs = append(errs, fmt.Errorf("config: JWT secret must be at least %d bytes in prod", minProdSecretLen))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("config: JWT_TTL must be positive"))
	}

	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("config: HASH_CONCURRENCY must be at least 1"))
	}

	return errs
}

// loadSecret prefers a mounted secret file over the plain variable.
func loadSecret() (string, error) {
	if path := os.Getenv("JWT_SECRET_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("config: read JWT_SECRET_FILE: %w", err)
		}

		secret := strings.TrimSpace(string(b))
		if secret == "" {
			return "", ErrMissingSecret
		}
		return secret, nil
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", ErrMissingSecret
	}

	return secret, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "movieapi")
	pass := getEnv("DB_PASSWORD", "movieapi")
	name := getEnv("DB_NAME", "movieapi")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds a store call made on behalf of parent.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parser collects conversion errors so Load can report all of them at once.
type parser struct {
	errs *[]error
}

func (p parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}

	return num
}

func (p parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}

	return b
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}

	return d
}
