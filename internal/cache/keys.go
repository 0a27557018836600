package cache

import (
	"strconv"
	"strings"
)

// Keys live under "ashbot:trivia:". The families in use are
//
//	ashbot:trivia:games:snapshot      cached played-games snapshot (string)
//	ashbot:trivia:history:state       question history and usage counters (hash)
//	ashbot:trivia:results:<session>   scored session summary (string)
const (
	GlobalKeyPrefix = "ashbot"
	triviaService   = "trivia"
)

// GenerateCacheKey joins prefix, service, object type and identifier with ":".
// Extra params are joined by "_" and appended as one more segment.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

func GameSnapshotKey() string {
	return GenerateCacheKey(triviaService, "games", "snapshot")
}

func HistoryStateKey() string {
	return GenerateCacheKey(triviaService, "history", "state")
}

func SessionResultsKey(sessionID int64) string {
	return GenerateCacheKey(triviaService, "results", strconv.FormatInt(sessionID, 10))
}
