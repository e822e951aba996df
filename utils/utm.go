package utils

import (
	"net/url"
	"strings"

	"erpsite/api/logger"
	"erpsite/api/models"
)

// ParseUTM extracts the recognized campaign parameters from rawURL. Only parameters with a
// non-empty value are returned, exactly as decoded. A malformed pair elsewhere in the query
// does not hide the well-formed ones; an unparseable URL yields the empty set.
func ParseUTM(rawURL string) models.UTMParams {
	var utm models.UTMParams

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return utm
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		logger.Debug("utm: malformed url", "url", rawURL, "error", err)
		return utm
	}

	// ParseQuery keeps every pair it could decode alongside the first error.
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		logger.Debug("utm: malformed query pair skipped", "url", rawURL, "error", err)
	}

	for _, name := range models.UTMParamNames {
		if v := q.Get(name); v != "" {
			utm.Set(name, v)
		}
	}
	return utm
}

// BuildCampaignURL appends utm to base, keeping any query parameters base already has.
func BuildCampaignURL(base string, utm models.UTMParams) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for name, v := range utm.Query() {
		q[name] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
