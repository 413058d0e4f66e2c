package redis

import (
	"fmt"
	"net/url"
)

const keyPrefix = "rps"

func matchKey(id string) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// recentIndexKey is a ZSET of match ids scored by end time (unix ms).
func recentIndexKey() string {
	return fmt.Sprintf("%s:idx:recent", keyPrefix)
}

// playersIndexKey is a SET of every playerKey with leaderboard totals.
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

func playerKey(affiliation, name string) string {
	return fmt.Sprintf("%s:player:%s:%s", keyPrefix, url.QueryEscape(affiliation), url.QueryEscape(name))
}
