package config

import (
	"fmt"

	"github.com/dvf-map/scrape/pkg/models"
)

func validate(c *Config) error {
	switch c.Source {
	case models.SourceLeboncoin, models.SourceLeboncoinProxy, models.SourceSeloger:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be > 0")
	}
	if c.NavigationTimeout <= 0 || c.AssetTimeout <= 0 || c.ProxyFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if c.ImageRPS <= 0 {
		return fmt.Errorf("image rate must be > 0")
	}
	return nil
}
