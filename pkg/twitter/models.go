package twitter

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Tweet is an opaque timeline entry. Only the id is interpreted; the raw
// object is kept so it can be written back out untouched.
type Tweet struct {
	ID  int64
	Raw json.RawMessage
}

// Follower is an opaque user object from followers/list.
type Follower struct {
	ID  int64
	Raw json.RawMessage
}

// FollowerPage is the followers/list response envelope.
type FollowerPage struct {
	Users          []Follower `json:"users"`
	NextCursor     int64      `json:"next_cursor"`
	PreviousCursor int64      `json:"previous_cursor"`
}

// objectID is the part of a tweet or user object twscrape reads.
type objectID struct {
	ID    *int64 `json:"id"`
	IDStr string `json:"id_str"`
}

func decodeID(data []byte) (int64, error) {
	var head objectID
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, err
	}
	if head.ID != nil {
		return *head.ID, nil
	}
	if head.IDStr != "" {
		return strconv.ParseInt(head.IDStr, 10, 64)
	}
	return 0, fmt.Errorf("object has no id")
}

func encodeRaw(id int64, raw json.RawMessage) ([]byte, error) {
	if len(raw) > 0 {
		return raw, nil
	}
	return json.Marshal(objectID{ID: &id, IDStr: strconv.FormatInt(id, 10)})
}

// UnmarshalJSON reads the id and keeps a copy of the whole object.
func (t *Tweet) UnmarshalJSON(data []byte) error {
	id, err := decodeID(data)
	if err != nil {
		return fmt.Errorf("decode tweet: %w", err)
	}
	t.ID = id
	t.Raw = append(t.Raw[:0], data...)
	return nil
}

// MarshalJSON writes the original object when one was decoded.
func (t Tweet) MarshalJSON() ([]byte, error) {
	return encodeRaw(t.ID, t.Raw)
}

// UnmarshalJSON reads the id and keeps a copy of the whole object.
func (f *Follower) UnmarshalJSON(data []byte) error {
	id, err := decodeID(data)
	if err != nil {
		return fmt.Errorf("decode follower: %w", err)
	}
	f.ID = id
	f.Raw = append(f.Raw[:0], data...)
	return nil
}

// MarshalJSON writes the original object when one was decoded.
func (f Follower) MarshalJSON() ([]byte, error) {
	return encodeRaw(f.ID, f.Raw)
}
