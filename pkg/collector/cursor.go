package collector

import "twscrape/pkg/twitter"

// MinID returns the smallest tweet id in tweets. ok is false for an empty
// slice, so any id including 0 or a negative one is a valid cursor.
func MinID(tweets []twitter.Tweet) (id int64, ok bool) {
	for i, t := range tweets {
		if i == 0 || t.ID < id {
			id = t.ID
		}
	}
	return id, len(tweets) > 0
}
