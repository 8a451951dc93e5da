package models

import "github.com/google/uuid"

// NewID builds a prefixed identifier like "match_3f2c…" so a raw id string
// is recognizable on its own (log lines, Discord messages, redis payloads).
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
