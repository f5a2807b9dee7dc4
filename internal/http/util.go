package httpx

import (
	"net/http"
	"net/url"
	"strconv"
)

// ParseLimitOffset reads limit and offset from the query string. Malformed
// values fall back to the defaults; limit is clamped to [1, maxLimit] and
// offset to be non-negative.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	q := r.URL.Query()
	limit = min(max(queryInt(q, "limit", defLimit), 1), max(maxLimit, 1))
	offset = max(queryInt(q, "offset", 0), 0)
	return limit, offset
}

func queryInt(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return def
	}
	return n
}
