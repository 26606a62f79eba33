package caption

import (
	"net/url"
	"strconv"
)

// ParseOptions builds Options from the upgrade request's query string.
// Repeated t9n, kw and bk parameters accumulate; interimResults defaults
// to false and profanityFilter to true when absent or malformed.
func ParseOptions(query url.Values) Options {
	return Options{
		Language:        query.Get("language"),
		Targets:         query["t9n"],
		AccountID:       query.Get("accountId"),
		ProfileID:       query.Get("profileId"),
		Keywords:        query["kw"],
		Blocked:         query["bk"],
		InterimResults:  parseBool(query.Get("interimResults"), false),
		ProfanityFilter: parseBool(query.Get("profanityFilter"), true),
	}
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
