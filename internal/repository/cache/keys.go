package cache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const keyPrefix = "terrain:"

// DEMPrefix - префикс всех закешированных результатов по DEM
func DEMPrefix(demID uuid.UUID) string {
	return keyPrefix + demID.String() + ":"
}

// ResultKey строит ключ результата анализа: terrain:<dem>:<kind>:<xxhash параметров>.
// Одинаковые параметры дают одинаковый ключ, поэтому повторный запрос попадает в кеш.
func ResultKey(demID uuid.UUID, kind string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal cache key params: %w", err)
	}
	return DEMPrefix(demID) + kind + ":" + strconv.FormatUint(xxhash.Sum64(raw), 16), nil
}
