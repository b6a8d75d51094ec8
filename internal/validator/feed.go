package validator

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateFeedURL accepts absolute http and https URLs only.
func ValidateFeedURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("feed url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "feed url is invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("feed url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("feed url has no host")
	}
	return nil
}
