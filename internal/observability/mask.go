package observability

import "strings"

// MaskURI hides the password of a connection string so it can be logged.
// Multi-host MongoDB URIs are not valid net/url URLs, so the userinfo is
// located by hand.
func MaskURI(raw string) string {
	scheme := strings.Index(raw, "://")
	if scheme < 0 {
		return raw
	}
	rest := raw[scheme+3:]
	authority := rest
	if slash := strings.IndexAny(rest, "/?"); slash >= 0 {
		authority = rest[:slash]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return raw
	}
	userinfo := authority[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return raw
	}
	return raw[:scheme+3] + userinfo[:colon] + ":***" + rest[at:]
}
