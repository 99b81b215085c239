package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration loaded from environment variables.
// It is loaded once at process start and treated as read-only afterwards.
type Config struct {
	Sources []string

	Weights        Weights
	FuzzyThreshold int
	TargetStart    time.Time
	TargetEnd      time.Time
	MaxBudget      int

	MaxListingsPerSource int
	MaxConcurrency       int
	RateLimitMs          int
	MaxRetries           int
	FetchTimeout         time.Duration
	LLMTimeout           time.Duration
	SinkTimeout          time.Duration

	LLMProvider     string
	AnthropicAPIKey string
	AnthropicModel  string
	CohereAPIKey    string
	CohereModel     string
	ApifyAPIToken   string
	FirecrawlAPIKey string

	FacebookGroupURLs []string
	FeedURLs          []string

	Store                   string
	SpreadsheetID           string
	GoogleSheetsCredentials string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr   string
	RedisPass   string
	RedisDB     int
	RedisPrefix string

	CSVOutputPath string
	SeenCSVPath   string
	ChromeBin     string

	Schedule string
	LogLevel string

	// Malformed lists scoring settings that were set but could not be
	// parsed; Validate reports them.
	Malformed []string
}

// Load reads the .env file and returns a populated Config struct.
// Malformed values fall back to their defaults; Validate catches what matters.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var malformed []string
	return &Config{
		Sources: getEnvList("SOURCES", nil),

		Weights: Weights{
			Location: getEnvIntStrict("WEIGHT_LOCATION", 30, &malformed),
			Price:    getEnvIntStrict("WEIGHT_PRICE", 25, &malformed),
			Type:     getEnvIntStrict("WEIGHT_TYPE", 20, &malformed),
			Timing:   getEnvIntStrict("WEIGHT_TIMING", 15, &malformed),
			Bonus:    getEnvIntStrict("WEIGHT_BONUS", 10, &malformed),
		},
		FuzzyThreshold: getEnvIntStrict("FUZZY_THRESHOLD", 85, &malformed),
		TargetStart:    getEnvDate("TARGET_START", time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)),
		TargetEnd:      getEnvDate("TARGET_END", time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)),
		MaxBudget:      getEnvInt("MAX_BUDGET", 2000),

		MaxListingsPerSource: getEnvInt("MAX_LISTINGS_PER_SOURCE", 100),
		MaxConcurrency:       getEnvInt("MAX_CONCURRENCY", 1),
		RateLimitMs:          getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:           getEnvInt("MAX_RETRIES", 2),
		FetchTimeout:         getEnvSeconds("FETCH_TIMEOUT_SEC", 300),
		LLMTimeout:           getEnvSeconds("LLM_TIMEOUT_SEC", 45),
		SinkTimeout:          getEnvSeconds("SINK_TIMEOUT_SEC", 60),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		CohereAPIKey:    getEnv("COHERE_API_KEY", ""),
		CohereModel:     getEnv("COHERE_MODEL", "command-r"),
		ApifyAPIToken:   getEnv("APIFY_API_TOKEN", ""),
		FirecrawlAPIKey: getEnv("FIRECRAWL_API_KEY", ""),

		FacebookGroupURLs: getEnvList("FACEBOOK_GROUP_URLS", []string{
			"https://www.facebook.com/groups/nycsublets/",
			"https://www.facebook.com/groups/nycroom/",
		}),
		FeedURLs: getEnvList("FEED_URLS", nil),

		Store:                   strings.ToLower(getEnv("STORE", "sheets")),
		SpreadsheetID:           getEnv("SPREADSHEET_ID", ""),
		GoogleSheetsCredentials: getEnv("GOOGLE_SHEETS_CREDENTIALS", "config/service_account.json"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "sublets"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPrefix: getEnv("REDIS_PREFIX", "sublets"),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),
		SeenCSVPath:   getEnv("SEEN_CSV_PATH", "./output/seen.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		Schedule: getEnv("SCHEDULE", ""),
		LogLevel: strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),

		Malformed: malformed,
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// LLMKey returns the API key for the configured extraction provider.
func (c *Config) LLMKey() string {
	if c.LLMProvider == "cohere" {
		return c.CohereAPIKey
	}
	return c.AnthropicAPIKey
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvIntStrict is getEnvInt for settings where a silent fallback would
// hide a mistake: a set but unparsable value is appended to malformed.
func getEnvIntStrict(key string, fallback int, malformed *[]string) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		*malformed = append(*malformed, fmt.Sprintf("%s=%q is not an integer", key, val))
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvDate(key string, fallback time.Time) time.Time {
	if val := os.Getenv(key); val != "" {
		t, err := time.Parse(dateLayout, val)
		if err == nil {
			return t
		}
		log.Printf("[config] Ignoring malformed %s=%q", key, val)
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
