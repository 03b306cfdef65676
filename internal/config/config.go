package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
    StoreMySQL  = "mysql"
    StoreMongo  = "mongo"
    StoreMemory = "memory"
)

// devJWTSecret is only accepted when APP_ENV=dev.
const devJWTSecret = "dev-insecure-secret"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; Load documents the defaults.
type Config struct {
    Env      string // application environment (dev, test, prod)
    Port     string // HTTP port to listen on
    LogLevel string // debug | info | warn | error

    StoreDriver string // mysql | mongo | memory
    DBUser      string
    DBPass      string
    DBHost      string
    DBPort      string
    DBName      string
    MongoURI    string
    MongoDB     string

    JWTSecret           string        // secret used to sign tokens
    TokenTTL            time.Duration // validity window of issued tokens
    TokenLegacyNoExpiry bool          // issue and accept tokens without exp (insecure)
    BcryptCost          int

    AmadeusClientID     string
    AmadeusClientSecret string
    AmadeusBaseURL      string

    RabbitMQURL            string // empty disables booking events
    BookingConsumerEnabled bool
    BookingLogDir          string

    CORSAllowedOrigins []string

    Redis       RedisConfig
    RateLimit   RateLimitConfig
    SearchCache SearchCacheConfig
}

// Load reads a .env file when one exists, then builds a Config from the
// environment.  It fails when a required value is missing or malformed.
func Load() (Config, error) {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return Config{}, fmt.Errorf("load .env: %w", err)
    }

    cfg := Config{
        Env:      envStr("APP_ENV", "dev"),
        Port:     envStr("APP_PORT", "2000"),
        LogLevel: envStr("LOG_LEVEL", "info"),

        StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
        DBUser:      envStr("DB_USER", "root"),
        DBPass:      os.Getenv("DB_PASS"), // empty allowed
        DBHost:      envStr("DB_HOST", "localhost"),
        DBPort:      envStr("DB_PORT", "3306"),
        DBName:      envStr("DB_NAME", "tripbook"),
        MongoURI:    envStr("MONGO_URI", "mongodb://localhost:27017"),
        MongoDB:     envStr("MONGO_DB", "tripbook"),

        JWTSecret:           os.Getenv("JWT_SECRET"),
        TokenTTL:            envDur("TOKEN_TTL", 24*time.Hour),
        TokenLegacyNoExpiry: envBool("TOKEN_LEGACY_NO_EXPIRY", false),
        BcryptCost:          envInt("BCRYPT_COST", 10),

        AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
        AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
        AmadeusBaseURL:      strings.TrimRight(envStr("AMADEUS_BASE_URL", "https://test.api.amadeus.com"), "/"),

        RabbitMQURL:            firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
        BookingConsumerEnabled: envBool("BOOKING_CONSUMER_ENABLED", false),
        BookingLogDir:          envStr("BOOKING_LOG_DIR", "logs"),

        CORSAllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),

        Redis:       loadRedis(),
        RateLimit:   loadRateLimit(),
        SearchCache: loadSearchCache(),
    }

    if cfg.JWTSecret == "" {
        if cfg.Env != "dev" {
            return Config{}, errors.New("missing required env var: JWT_SECRET")
        }
        cfg.JWTSecret = devJWTSecret
    }
    switch cfg.StoreDriver {
    case StoreMySQL, StoreMongo, StoreMemory:
    default:
        return Config{}, fmt.Errorf("invalid STORE_DRIVER %q (want mysql, mongo or memory)", cfg.StoreDriver)
    }
    if !cfg.TokenLegacyNoExpiry && cfg.TokenTTL <= 0 {
        return Config{}, fmt.Errorf("invalid TOKEN_TTL %s: must be positive", cfg.TokenTTL)
    }
    if cfg.BookingConsumerEnabled && cfg.RabbitMQURL == "" {
        return Config{}, errors.New("BOOKING_CONSUMER_ENABLED requires RABBITMQ_URL")
    }
    return cfg, nil
}

// SearchEnabled reports whether provider credentials are configured.
func (c Config) SearchEnabled() bool {
    return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}

func firstNonEmpty(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
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
