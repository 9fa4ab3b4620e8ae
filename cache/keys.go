package cache

import (
	"strconv"
	"strings"
)

// ProviderModelKey composes the composite key ModelByProviderAndName is
// looked up by.
func ProviderModelKey(providerID int64, modelName string) string {
	return strconv.FormatInt(providerID, 10) + "\x00" + modelName
}

func splitProviderAndName(key string) (providerID int64, name string, ok bool) {
	parts := strings.SplitN(key, "\x00", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, parts[1], true
}

// IDKey stringifies an int64 id for use as a cache key.
func IDKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
