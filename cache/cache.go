// Package cache provides a response cache for model calls: a deterministic
// key over the normalized request conversation, pluggable storage, and a
// hook plugin that short-circuits cache hits before the collaborator runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/model"
)

// keyLen is the number of hex characters kept from the digest.
const keyLen = 32

// Key derives the cache key for a request: one "role:text" line per
// content, non-text parts rendered as fixed placeholders, hashed with
// SHA-256 and truncated. Two requests with the same ordered conversation
// always produce the same key, regardless of tools or instructions.
func Key(req *model.Request) string {
	var b strings.Builder
	for i, c := range req.Contents {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Role)
		b.WriteByte(':')
		for _, p := range c.Parts {
			switch p := p.(type) {
			case core.TextPart:
				b.WriteString(p.Text)
			case core.FunctionCallPart:
				b.WriteString("<function_call>")
			case core.FunctionResponsePart:
				b.WriteString("<function_response>")
			}
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:keyLen]
}

// Store persists cached response text by key. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the cached text for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores text under key, replacing any previous value.
	Put(ctx context.Context, key, text string) error
}
