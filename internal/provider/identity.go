package provider

import (
	"errors"
	"net/url"
	"strings"
)

// trackingParams are query parameters that vary per impression without
// changing the image the URL points at.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"ref":          true,
	"ref_src":      true,
	"igshid":       true,
}

// ErrNoImageURL indicates a raw record without a usable image URL.
var ErrNoImageURL = errors.New("record has no image URL")

// NormalizeImageURL canonicalizes an image URL for use as an identity key:
// scheme and host are lowercased, default ports and fragments are dropped,
// tracking query parameters are stripped, and the remaining query is sorted.
// Parameters:
//   - raw: image URL as received from the provider.
// Returns:
//   - string: normalized URL.
//   - error: non-nil if the URL is empty or unparseable.
func NormalizeImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoImageURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNoImageURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	} else if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.RawQuery != "" {
		values := u.Query()
		for param := range values {
			if trackingParams[strings.ToLower(param)] {
				values.Del(param)
			}
		}
		// url.Values.Encode sorts keys, keeping the key stable across
		// providers that reorder parameters.
		u.RawQuery = values.Encode()
	}

	// Trailing slash on the path is not significant for image URLs.
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Domain extracts the lowercase host from a URL, or "" if unparseable.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
