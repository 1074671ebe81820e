package tracking

import "strings"

// Device classifies a user agent as bot, tablet, mobile or desktop.
// An empty user agent yields nil.
func Device(userAgent string) *string {
	if userAgent == "" {
		return nil
	}
	ua := strings.ToLower(userAgent)

	var d string
	switch {
	case containsAny(ua, "bot", "crawler", "spider", "curl/", "wget/"):
		d = "bot"
	case containsAny(ua, "ipad", "tablet"):
		d = "tablet"
	case containsAny(ua, "mobi", "iphone", "android"):
		d = "mobile"
	default:
		d = "desktop"
	}
	return &d
}

// Browser names the browser family of a user agent. Order matters: most
// engines also advertise the tokens of the browsers they derive from.
func Browser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	var b string
	switch {
	case strings.Contains(userAgent, "Edg/"):
		b = "edge"
	case strings.Contains(userAgent, "OPR/"):
		b = "opera"
	case strings.Contains(userAgent, "Firefox/"):
		b = "firefox"
	case strings.Contains(userAgent, "Chrome/"), strings.Contains(userAgent, "CriOS/"):
		b = "chrome"
	case strings.Contains(userAgent, "Safari/"):
		b = "safari"
	case strings.HasPrefix(userAgent, "curl/"):
		b = "curl"
	default:
		b = "other"
	}
	return &b
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
