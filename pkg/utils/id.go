package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// Counter used when the random source fails
	idCounter uint64
)

// GenerateRunID generates a tuning run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		count := atomic.AddUint64(&idCounter, 1)
		return fmt.Sprintf("tune-%s-%x", timestamp, count)
	}
	return fmt.Sprintf("tune-%s-%s", timestamp, hex.EncodeToString(b))
}
