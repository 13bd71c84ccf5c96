package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Mail.AuthMode) {
	case "password":
		if c.Mail.Password == "" {
			errs = append(errs, "mail.password is required when auth_mode is password")
		}
	case "xoauth2":
		if c.Mail.AccessToken == "" && c.Mail.ClientID == "" {
			errs = append(errs, "mail.access_token or mail.client_id is required when auth_mode is xoauth2")
		}
		if c.Mail.ClientID != "" && c.Mail.RefreshToken == "" {
			errs = append(errs, "mail.refresh_token is required when mail.client_id is set")
		}
	default:
		errs = append(errs, fmt.Sprintf("mail.auth_mode %q is not one of password, xoauth2", c.Mail.AuthMode))
	}

	if c.Pipeline.SimilarityThreshold < 0 || c.Pipeline.SimilarityThreshold > 1 {
		errs = append(errs, "pipeline.similarity_threshold must be in [0,1]")
	}
	if c.Pipeline.ConfidenceFloor < 0 || c.Pipeline.ConfidenceFloor > 1 {
		errs = append(errs, "pipeline.confidence_floor must be in [0,1]")
	}
	if c.Mail.MaxBatch < 1 {
		errs = append(errs, "mail.max_batch must be at least 1")
	}
	if c.Poll.Interval < time.Minute {
		errs = append(errs, "poll.interval must be at least 1m to stay within provider rate limits")
	}
	if _, err := parsePlatformPairs(c.Pipeline.ExtraPlatformDomains); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ExtraPlatforms parses ExtraPlatformDomains into a domain→name map.
// Validate has already checked the syntax.
func (c PipelineConfig) ExtraPlatforms() map[string]string {
	m, _ := parsePlatformPairs(c.ExtraPlatformDomains)
	return m
}

func parsePlatformPairs(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		domain, name, ok := strings.Cut(pair, "=")
		domain = strings.ToLower(strings.TrimSpace(domain))
		name = strings.TrimSpace(name)
		if !ok || domain == "" || name == "" {
			return nil, fmt.Errorf("pipeline.extra_platform_domains: malformed pair %q (want domain=Name)", pair)
		}
		m[domain] = name
	}
	return m, nil
}
