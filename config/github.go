package config

import (
	"strings"
	"time"
)

// GitHubConfig contains source-control host configuration.
type GitHubConfig struct {
	// Token authenticates API calls. Required for the worker service.
	Token string `env:"GITHUB_TOKEN"`

	// BaseURL overrides the API host for GitHub Enterprise deployments.
	// Leave empty for github.com.
	BaseURL string `env:"GITHUB_BASE_URL" envDefault:""`

	// CallTimeout bounds each individual API call.
	CallTimeout time.Duration `env:"GITHUB_CALL_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to GitHub configuration values.
func (g *GitHubConfig) Sanitize() {
	g.Token = strings.TrimSpace(g.Token)
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.CallTimeout <= 0 {
		g.CallTimeout = 15 * time.Second
	}
}
