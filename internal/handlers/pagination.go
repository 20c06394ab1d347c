package handlers

import (
	"strconv"
	"strings"

	"storefront/internal/apperr"
)

// parsePaginationParams reads page and limit. Absent values are returned as
// zero so the service applies its defaults.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	var page, limit int64

	if pageStr = strings.TrimSpace(pageStr); pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperr.Validation("invalid pagination params")
		}
		page = p
	}

	if limitStr = strings.TrimSpace(limitStr); limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperr.Validation("invalid pagination params")
		}
		limit = l
	}

	return page, limit, nil
}

func parsePrice(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.Validation("invalid " + name)
	}
	return &v, nil
}

// parseFlag accepts "true" and "1"; anything else is false.
func parseFlag(raw string) bool {
	raw = strings.TrimSpace(strings.ToLower(raw))
	return raw == "true" || raw == "1"
}
