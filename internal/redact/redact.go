// Package redact masks credentials before they reach logs or audit events.
package redact

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const redactedSecret = "[REDACTED_SECRET]"

var (
	kvSecretRe = regexp.MustCompile(`(?i)((?:api|token|secret|key|password)[-_ ]*(?:id|key|token)?\s*[:=]\s*)(['\"]?)([A-Za-z0-9+/=_\-]{8,})(['\"]?)`)
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer|token)\s+([A-Za-z0-9._\-]{10,})`)

	// Query parameters that commonly carry credentials in download links.
	sensitiveParams = map[string]struct{}{
		"token":            {},
		"access_token":     {},
		"api_key":          {},
		"apikey":           {},
		"key":              {},
		"password":         {},
		"secret":           {},
		"sig":              {},
		"signature":        {},
		"x-amz-signature":  {},
		"x-amz-credential": {},
	}
)

// String redacts common secret patterns from the provided string.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2`+redactedSecret+`$4`)
	masked = bearerRe.ReplaceAllString(masked, `$1 `+redactedSecret)
	return masked
}

// Ref redacts a source reference. URLs lose their password and sensitive
// query values; anything else goes through String.
func Ref(ref string) string {
	lower := strings.ToLower(ref)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return String(ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return String(ref)
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "REDACTED")
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for name := range q {
			if _, ok := sensitiveParams[strings.ToLower(name)]; ok {
				q.Set(name, "REDACTED")
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String()
}

// Map redacts string values within an audit metadata map.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = String(val)
		case fmt.Stringer:
			out[k] = String(val.String())
		case error:
			out[k] = String(val.Error())
		default:
			out[k] = v
		}
	}
	return out
}
