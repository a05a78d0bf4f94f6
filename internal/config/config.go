package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dvf-map/scrape/pkg/models"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Pipeline
	Source    models.Source
	UserAgent string
	OutputDir string

	// Remote browser (CDP over websocket, credentialed URL)
	BrowserWSURL string

	// Forward proxies for direct fetches (image downloads, seloger pages)
	ForwardProxies []string

	// Scraping-proxy service
	ScrapingAPIURL  string
	ScrapingAPIKey  string
	ScrapingCountry string
	ScrapingPool    string

	// Timeouts
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	MarkerTimeout     time.Duration
	SettleDelay       time.Duration
	AssetTimeout      time.Duration
	ProxyFetchTimeout time.Duration
	AttemptPause      time.Duration

	// Retry / pacing
	MaxAttempts int
	ImageRPS    float64
	ImageBurst  int

	// HTTP API
	ListenAddr     string
	PublicBaseURL  string
	AllowedOrigins []string
	JWTSecret      string

	// Persistence
	DatabaseURL string

	// Debug
	DebugDumpHTML bool
}

// Load builds a Config by combining defaults, a .env file when present,
// environment variables, and CLI flags. Caller should pass the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// Best effort: a missing .env file is not an error
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env file loaded")
	}

	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		Source:            models.SourceLeboncoin,
		UserAgent:         DefaultUserAgent,
		OutputDir:         DefaultOutputDir,
		ScrapingAPIURL:    DefaultScrapingAPIURL,
		ScrapingCountry:   DefaultScrapingCountry,
		ScrapingPool:      DefaultScrapingPool,
		NavigationTimeout: DefaultNavigationTimeout,
		SelectorTimeout:   DefaultSelectorTimeout,
		MarkerTimeout:     DefaultMarkerTimeout,
		SettleDelay:       DefaultSettleDelay,
		AssetTimeout:      DefaultAssetTimeout,
		ProxyFetchTimeout: DefaultProxyFetchTimeout,
		AttemptPause:      DefaultAttemptPause,
		MaxAttempts:       DefaultMaxAttempts,
		ImageRPS:          DefaultImageRPS,
		ImageBurst:        DefaultImageBurst,
		ListenAddr:        DefaultListenAddr,
		PublicBaseURL:     DefaultPublicBaseURL,
	}

	loadEnv(cfg)

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("source"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Source = models.Source(s)
			}
		}
		if f := cmd.Flags().Lookup("output-dir"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.OutputDir = s
			}
		}
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
		if f := cmd.Flags().Lookup("debug-dump-html"); f != nil {
			if f.Value.String() == "true" {
				cfg.DebugDumpHTML = true
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadEnv applies environment overrides. Credentialed endpoint URLs are
// assembled from their components the way the provider documents them.
func loadEnv(cfg *Config) {
	if v := os.Getenv("SCRAPE_SOURCE"); v != "" {
		cfg.Source = models.Source(v)
	}
	if v := os.Getenv("SCRAPE_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("SCRAPE_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("SCRAPE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SCRAPE_PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = v
	}
	if v := os.Getenv("SCRAPE_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	} else if host := os.Getenv("POSTGRESQL_HOST"); host != "" {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			getenv("POSTGRESQL_USER", "admin"),
			os.Getenv("POSTGRESQL_PASSWORD"),
			host,
			getenv("POSTGRESQL_PORT", "5432"),
			getenv("POSTGRESQL_DATABASE_NAME", "immo_bd"),
		)
	}

	// Managed browser endpoint
	if v := os.Getenv("SCRAPE_BROWSER_WS"); v != "" {
		cfg.BrowserWSURL = v
	} else if auth := os.Getenv("BRIGHT_DATA_BROWSER_AUTH"); auth != "" {
		cfg.BrowserWSURL = fmt.Sprintf("wss://%s@%s:%d", auth, DefaultBrowserHost, DefaultBrowserPort)
	}

	// Forward proxy for image and direct page fetches
	if v := os.Getenv("SCRAPE_FORWARD_PROXY"); v != "" {
		cfg.ForwardProxies = splitAndTrim(v)
	} else if customer := os.Getenv("BRIGHT_DATA_CUSTOMER_ID"); customer != "" {
		cfg.ForwardProxies = []string{fmt.Sprintf("http://brd-customer-%s-zone-%s:%s@%s:%s",
			customer,
			getenv("BRIGHT_DATA_ZONE", "residential_proxy1"),
			os.Getenv("BRIGHT_DATA_PASSWORD"),
			getenv("BRIGHT_DATA_PROXY_HOST", DefaultProxyHost),
			getenv("BRIGHT_DATA_PROXY_PORT", "33335"),
		)}
	}

	// Scraping-proxy service
	if v := os.Getenv("SCRAPFLY_API_URL"); v != "" {
		cfg.ScrapingAPIURL = v
	}
	if v := os.Getenv("SCRAPFLY_API_KEY"); v != "" {
		cfg.ScrapingAPIKey = v
	}
	if v := os.Getenv("SCRAPE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
