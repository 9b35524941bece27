package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

func idNode() *snowflake.Node {
	snowflakeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		snowflakeNode = node
	})
	return snowflakeNode
}

// UUIDint64 returns a time ordered unique int64 id.
func UUIDint64() int64 {
	return idNode().Generate().Int64()
}

// UUID returns a random uuid string.
func UUID() string {
	return uuid.NewString()
}

// IsEmptyOrNA reports whether a free text value is blank or a "N/A" marker.
func IsEmptyOrNA(val string) bool {
	v := strings.TrimSpace(val)
	return v == "" || strings.EqualFold(v, "N/A")
}

// SplitTrim splits s by sep, trims every part and drops empty parts.
func SplitTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
