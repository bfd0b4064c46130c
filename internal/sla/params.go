package sla

import (
	"net/url"
	"strings"
)

// query wraps the parsed query string. All SLA parameters arrive here; the
// request body is never consulted.
type query struct {
	values url.Values
}

func (q query) get(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

func (q query) has(key string) bool {
	return q.get(key) != ""
}

// missing returns the first absent key of the required set, or "".
func (q query) missing(required ...string) string {
	for _, key := range required {
		if !q.has(key) {
			return key
		}
	}
	return ""
}

// identifier returns the subscriber identifier parameters. Exactly one of
// msisdn/acr may be set; the handler validates exclusivity.
func (q query) identifier() (msisdn, acr string) {
	return q.get("msisdn"), q.get("acr")
}

func (q query) bool(key string) bool {
	switch strings.ToLower(q.get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
