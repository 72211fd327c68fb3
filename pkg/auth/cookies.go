package auth

import (
	"net/url"
	"strings"
)

// ParseCookieHeader extracts auth_token, ct0 and the twid user id from a
// browser Cookie header ("name=value; name2=value2"). Fields that are not
// present are left empty.
func ParseCookieHeader(header string) *Account {
	account := &Account{}

	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch strings.TrimSpace(name) {
		case "auth_token":
			account.AuthToken = value
		case "ct0":
			account.CT0 = value
		case "twid":
			account.UserID = UserIDFromTwid(value)
		}
	}

	return account
}

// UserIDFromTwid decodes a twid cookie value such as "u%3D123" or "u=123"
func UserIDFromTwid(twid string) string {
	decoded, err := url.QueryUnescape(twid)
	if err != nil {
		decoded = twid
	}
	id, ok := strings.CutPrefix(decoded, "u=")
	if !ok || id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}
