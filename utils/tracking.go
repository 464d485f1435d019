package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTrackingCode builds the public reference code for a submission,
// e.g. ETH-2026-4F2A9C1B. Uniqueness is enforced by the database column.
func GenerateTrackingCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("ETH-%d-%s", now.Year(), suffix)
}
