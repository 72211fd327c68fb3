package twitter

import (
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the private web API root used by x.com
	DefaultBaseURL = "https://x.com/i/api"

	FollowingIDsEndpoint      = "/1.1/friends/ids.json"
	FollowerIDsEndpoint       = "/1.1/followers/ids.json"
	FollowingListEndpoint     = "/1.1/friends/list.json"
	FollowerListEndpoint      = "/1.1/followers/list.json"
	FriendshipDestroyEndpoint = "/1.1/friendships/destroy.json"

	// IDPageSize is the maximum ids per ids.json page
	IDPageSize = 5000
	// ProfilePageSize is the maximum users per list.json page
	ProfilePageSize = 200

	// InitialCursor starts a cursor walk
	InitialCursor = "-1"
)

// Relation selects one side of the graph
type Relation string

const (
	Following Relation = "following"
	Followers Relation = "followers"
)

// IDsEndpoint returns the id-collection endpoint for r
func (r Relation) IDsEndpoint() string {
	if r == Followers {
		return FollowerIDsEndpoint
	}
	return FollowingIDsEndpoint
}

// ListEndpoint returns the profile-hydration endpoint for r
func (r Relation) ListEndpoint() string {
	if r == Followers {
		return FollowerListEndpoint
	}
	return FollowingListEndpoint
}

func normalizeCursor(cursor string) string {
	if cursor == "" {
		return InitialCursor
	}
	return cursor
}

// idsQuery builds the query string for an ids.json page
func idsQuery(userID, cursor string) string {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("count", strconv.Itoa(IDPageSize))
	params.Set("cursor", normalizeCursor(cursor))
	params.Set("stringify_ids", "true")
	return params.Encode()
}

// listQuery builds the query string for a list.json page
func listQuery(userID, cursor string) string {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("count", strconv.Itoa(ProfilePageSize))
	params.Set("cursor", normalizeCursor(cursor))
	params.Set("skip_status", "false")
	params.Set("include_user_entities", "false")
	return params.Encode()
}
