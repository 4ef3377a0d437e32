package twitter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTweetKeepsRawObject(t *testing.T) {
	input := `[{"id":1234567890123456789,"id_str":"1234567890123456789","text":"hello","entities":{"hashtags":[]}}]`

	var tweets []Tweet
	require.NoError(t, json.Unmarshal([]byte(input), &tweets))
	require.Len(t, tweets, 1)
	assert.Equal(t, int64(1234567890123456789), tweets[0].ID)

	out, err := json.Marshal(tweets)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestTweetIDFromString(t *testing.T) {
	var tweet Tweet
	require.NoError(t, json.Unmarshal([]byte(`{"id_str":"42","text":"x"}`), &tweet))
	assert.Equal(t, int64(42), tweet.ID)
}

func TestTweetWithoutID(t *testing.T) {
	var tweet Tweet
	assert.Error(t, json.Unmarshal([]byte(`{"text":"no id"}`), &tweet))
}

func TestTweetNegativeAndZeroIDs(t *testing.T) {
	var tweets []Tweet
	require.NoError(t, json.Unmarshal([]byte(`[{"id":0},{"id":-5}]`), &tweets))
	assert.Equal(t, int64(0), tweets[0].ID)
	assert.Equal(t, int64(-5), tweets[1].ID)
}

func TestFollowerPage(t *testing.T) {
	input := `{"users":[{"id":7,"screen_name":"seven"},{"id":8,"screen_name":"eight"}],"next_cursor":1510,"previous_cursor":0}`

	var page FollowerPage
	require.NoError(t, json.Unmarshal([]byte(input), &page))

	require.Len(t, page.Users, 2)
	assert.Equal(t, int64(7), page.Users[0].ID)
	assert.Equal(t, int64(1510), page.NextCursor)
	assert.JSONEq(t, `{"id":8,"screen_name":"eight"}`, string(page.Users[1].Raw))
}

func TestMarshalWithoutRaw(t *testing.T) {
	out, err := json.Marshal(Follower{ID: 99})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":99,"id_str":"99"}`, string(out))
}
