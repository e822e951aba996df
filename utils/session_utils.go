package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"erpsite/api/logger"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSessionID returns "<epoch-ms>-<9 base36 chars>".
func GenerateSessionID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomSuffix(9)
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			logger.Error("failed to read random bytes for session id", "error", err)
			// nanosecond clock keeps ids distinct enough when the entropy source fails
			return strconv.FormatInt(time.Now().UnixNano(), 36)
		}
		b[i] = base36[idx.Int64()]
	}
	return string(b)
}
