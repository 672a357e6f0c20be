// Package origin selects the endpoint of the static object store.
package origin

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultRegion uses the global endpoint of the store.
const DefaultRegion = "us-east-1"

// Store is the static object store of the application artifacts.
type Store struct {

	// Domain is the bucket name, or a complete bucket domain, e.g.
	// assets.s3.amazonaws.com.
	Domain string

	// Region of the bucket. Empty means DefaultRegion.
	Region string

	// URL replaces the bucket endpoint when set, e.g. a local store in
	// development.
	URL string
}

func (s Store) bucket() string {
	if i := strings.Index(s.Domain, ".s3."); i > 0 {
		return s.Domain[:i]
	}

	return s.Domain
}

// Endpoint returns the host name of the store. Buckets in the default
// region use the global endpoint, other buckets the regional one.
func (s Store) Endpoint() string {
	if s.URL != "" {
		if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
			return u.Host
		}
	}

	if s.Region == "" || s.Region == DefaultRegion {
		return s.bucket() + ".s3.amazonaws.com"
	}

	return fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket(), s.Region)
}

func (s Store) base() string {
	if s.URL != "" {
		return strings.TrimSuffix(s.URL, "/")
	}

	return "https://" + s.Endpoint()
}

// Target returns the URL of an object in the store, under the storage
// prefix. The prefix and the path are used as they are, they are
// expected to be escaped.
func (s Store) Target(prefix, p string) (*url.URL, error) {
	u, err := url.Parse(s.base() + prefix + p)
	if err != nil {
		return nil, fmt.Errorf("invalid store target %s%s: %w", prefix, p, err)
	}

	return u, nil
}

// Validate checks that either a bucket or a store URL is configured.
func (s Store) Validate() error {
	if s.Domain == "" && s.URL == "" {
		return fmt.Errorf("missing store domain or URL")
	}

	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("invalid store URL: %w", err)
		}

		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("invalid store URL: %s", s.URL)
		}
	}

	return nil
}
