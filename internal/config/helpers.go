package config

import (
	"fmt"
	"os"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	if c.Reports.DataDir == "" || c.Reports.Backend == "memory" {
		return nil
	}
	return os.MkdirAll(c.Reports.DataDir, 0755)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// PublishingEnabled reports whether anomaly events go to a queue
func (c *Config) PublishingEnabled() bool {
	return c.Queue.Type != "" && c.Queue.Type != "none"
}

// WorkerEnabled reports whether analysis requests are consumed from the queue
func (c *Config) WorkerEnabled() bool {
	return c.PublishingEnabled() && c.Queue.RequestSubject != ""
}
