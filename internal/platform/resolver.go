// Package platform maps media URLs to the platform that hosts them.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrNotSupported = errors.New("platform not supported")
)

// Platform names
const (
	YouTube   = "YouTube"
	Instagram = "Instagram"
	Facebook  = "Facebook"
	Twitter   = "Twitter"
	TikTok    = "TikTok"
	Vimeo     = "Vimeo"
	Terabox   = "Terabox"
)

type domainRule struct {
	substr   string
	platform string
	// anchored rules only match the domain itself or its subdomains
	anchored bool
}

// Checked in order, first match wins.
var rules = []domainRule{
	{substr: "youtube.com", platform: YouTube},
	{substr: "youtu.be", platform: YouTube},
	{substr: "instagram.com", platform: Instagram},
	{substr: "facebook.com", platform: Facebook},
	{substr: "fb.watch", platform: Facebook},
	{substr: "twitter.com", platform: Twitter},
	{substr: "terabox.com", platform: Terabox},
	{substr: "x.com", platform: Twitter, anchored: true},
	{substr: "tiktok.com", platform: TikTok},
	{substr: "vm.tiktok.com", platform: TikTok},
	{substr: "vimeo.com", platform: Vimeo},
}

func (r domainRule) matches(host string) bool {
	if r.anchored {
		return host == r.substr || strings.HasSuffix(host, "."+r.substr)
	}
	return strings.Contains(host, r.substr)
}

// Resolve returns the platform name for rawURL. The host is matched by
// substring containment against the known domains; "x.com" is too short for
// that and must be the host or its parent domain.
func Resolve(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrNotSupported
	}
	for _, r := range rules {
		if r.matches(host) {
			return r.platform, nil
		}
	}
	return "", ErrNotSupported
}

// Platforms lists the distinct supported platform names in declaration order
func Platforms() []string {
	seen := make(map[string]bool, len(rules))
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		if !seen[r.platform] {
			seen[r.platform] = true
			names = append(names, r.platform)
		}
	}
	return names
}
