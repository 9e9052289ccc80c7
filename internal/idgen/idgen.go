// Package idgen generates the identifiers described in spec §3 and §4.F:
// task_id (timestamp + random suffix, globally unique) and agent_id
// ({type}-{HHMMSS}-{6-hex}, unique within a task).
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskID returns a new globally-unique task identifier: a sortable
// timestamp prefix plus a random suffix drawn from uuid's entropy source
// (the teacher uses google/uuid for every identifier it persists; we reuse
// it here instead of hand-rolling a second random source).
func TaskID(now time.Time) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("task-%d-%s", now.UnixMilli(), suffix)
}

// AgentID returns a new agent identifier of the form
// "{type}-{HHMMSS}-{6-hex}" per spec §4.F step 3.
func AgentID(agentType string, now time.Time) (string, error) {
	hexSuffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", agentType, now.Format("150405"), hexSuffix), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CorrelationID returns an opaque random id (a UUID string) for log
// correlation. No other package in this module calls it.
func CorrelationID() string {
	return uuid.New().String()
}
