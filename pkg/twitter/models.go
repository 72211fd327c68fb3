package twitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// IDPage is one page of ids.json
type IDPage struct {
	IDs        []string
	NextCursor string
}

// Exhausted reports whether the walk ends after this page
func (p *IDPage) Exhausted() bool {
	return cursorExhausted(p.NextCursor)
}

// ProfilePage is one page of list.json
type ProfilePage struct {
	Users      []RawUser
	NextCursor string
}

// Exhausted reports whether the walk ends after this page
func (p *ProfilePage) Exhausted() bool {
	return cursorExhausted(p.NextCursor)
}

func cursorExhausted(cursor string) bool {
	return cursor == "" || cursor == "0"
}

// RawUser is the v1.1 user object as returned by list.json
type RawUser struct {
	IDStr                string     `json:"id_str"`
	ScreenName           string     `json:"screen_name"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	FollowersCount       int        `json:"followers_count"`
	FriendsCount         int        `json:"friends_count"`
	StatusesCount        int        `json:"statuses_count"`
	Verified             bool       `json:"verified"`
	IsBlueVerified       bool       `json:"is_blue_verified"`
	Protected            bool       `json:"protected"`
	Suspended            bool       `json:"suspended"`
	ProfileImageURLHTTPS string     `json:"profile_image_url_https"`
	Status               *RawStatus `json:"status,omitempty"`
}

// RawStatus is the embedded most recent post
type RawStatus struct {
	CreatedAt string `json:"created_at"`
}

// LastPostTime parses the most recent post timestamp. ok is false when the
// user has no embedded status; err is set when the timestamp is present but
// unparseable.
func (u *RawUser) LastPostTime() (t time.Time, ok bool, err error) {
	if u.Status == nil || u.Status.CreatedAt == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RubyDate, u.Status.CreatedAt)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// flexID accepts an id encoded either as a JSON string or a JSON number
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type rawIDPage struct {
	IDs           []flexID    `json:"ids"`
	NextCursorStr string      `json:"next_cursor_str"`
	NextCursor    json.Number `json:"next_cursor"`
}

type rawProfilePage struct {
	Users         []RawUser   `json:"users"`
	NextCursorStr string      `json:"next_cursor_str"`
	NextCursor    json.Number `json:"next_cursor"`
}

func pickCursor(str string, num json.Number) string {
	if str != "" {
		return str
	}
	return num.String()
}

// apiErrors is the error envelope X returns alongside non-2xx statuses
type apiErrors struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// errorCodes returns the X error codes carried in body, if any
func errorCodes(body []byte) []int {
	var env apiErrors
	if json.Unmarshal(body, &env) != nil {
		return nil
	}
	codes := make([]int, 0, len(env.Errors))
	for _, e := range env.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func isBlank(body []byte) bool {
	return len(strings.TrimSpace(string(body))) == 0
}
