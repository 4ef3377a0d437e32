package twitter

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the v1.1 REST API root
	DefaultBaseURL = "https://api.twitter.com/1.1"

	// EndpointUserTimeline returns a user's tweets, newest first
	EndpointUserTimeline = "statuses/user_timeline"

	// EndpointFollowersList returns a page of a user's followers
	EndpointFollowersList = "followers/list"

	// TimelinePageSize is the largest count statuses/user_timeline accepts
	TimelinePageSize = 200

	// FirstCursor asks followers/list for the first page
	FirstCursor int64 = -1

	// LastCursor is the next_cursor value of the final followers/list page
	LastCursor int64 = 0
)

// EndpointURL joins the API base URL, endpoint name and .json suffix.
func EndpointURL(baseURL, endpoint string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/") + ".json"
}

// TimelineParams builds statuses/user_timeline parameters. maxID is only
// sent when hasMaxID is true.
func TimelineParams(userID string, count int, maxID int64, hasMaxID bool) url.Values {
	if count <= 0 || count > TimelinePageSize {
		count = TimelinePageSize
	}

	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("count", strconv.Itoa(count))
	if hasMaxID {
		params.Set("max_id", strconv.FormatInt(maxID, 10))
	}
	return params
}

// FollowersParams builds followers/list parameters.
func FollowersParams(userID string, cursor int64) url.Values {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	return params
}

// IsValidUserID checks that id is a numeric Twitter user id
func IsValidUserID(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SanitizeUserID trims whitespace and an optional "id:" prefix
func SanitizeUserID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "id:")
	return strings.TrimSpace(id)
}
