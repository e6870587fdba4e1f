package utils

import "strconv"

// BuildUserContentsCacheKey keys the per-user contents listing. Versioned so
// a payload shape change can invalidate old entries wholesale.
func BuildUserContentsCacheKey(userID int64) string {
	return "contents:list:v1:user=" + strconv.FormatInt(userID, 10)
}
