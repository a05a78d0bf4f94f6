package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel  = "info"
	DefaultJSONLog   = false
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

	DefaultListenAddr    = ":5001"
	DefaultPublicBaseURL = "http://localhost:5001"
	DefaultOutputDir     = "scraped_data"

	DefaultNavigationTimeout = 90 * time.Second
	DefaultSelectorTimeout   = 5 * time.Second
	DefaultMarkerTimeout     = 10 * time.Second
	DefaultSettleDelay       = 2 * time.Second
	DefaultAssetTimeout      = 10 * time.Second
	DefaultProxyFetchTimeout = 15 * time.Second
	DefaultAttemptPause      = 5 * time.Second

	DefaultMaxAttempts = 3
	DefaultImageRPS    = 1.0
	DefaultImageBurst  = 1

	DefaultScrapingAPIURL  = "https://api.scrapfly.io/scrape"
	DefaultScrapingCountry = "fr"
	DefaultScrapingPool    = "public_residential_pool"

	DefaultBrowserHost = "brd.superproxy.io"
	DefaultBrowserPort = 9222
	DefaultProxyHost   = "brd.superproxy.io"
	DefaultProxyPort   = 33335
)
