package core

import (
	"reflect"
	"strings"
)

// State key prefixes partition scope. Unprefixed keys are session-local.
const (
	// StatePrefixUser marks keys that persist across all sessions of a user.
	StatePrefixUser = "user:"
	// StatePrefixApp marks keys shared by every user of the app.
	StatePrefixApp = "app:"
	// StatePrefixTemp marks internal-protocol keys. They may live in a
	// session's working state but must never be written to a durable state
	// delta.
	StatePrefixTemp = "temp:"
)

// Reserved temp-scoped keys seeded by the request surface to resolve which
// session a turn belongs to.
const (
	StateKeyUserID    = StatePrefixTemp + "user_id"
	StateKeySessionID = StatePrefixTemp + "session_id"
	StateKeyThreadID  = StatePrefixTemp + "thread_id"
)

// IsTempStateKey reports whether the key carries the internal-protocol prefix.
func IsTempStateKey(key string) bool { return strings.HasPrefix(key, StatePrefixTemp) }

// FilterTempState returns a copy of state with all internal-protocol keys
// removed. The result is what may legally appear in a durable state delta.
func FilterTempState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if IsTempStateKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// FoldDelta merges delta into state last-write-wins per key, skipping
// internal-protocol keys. It is the single fold rule: state at any point in
// a session equals FoldDelta applied over every event delta in log order.
func FoldDelta(state, delta map[string]any) {
	for k, v := range delta {
		if IsTempStateKey(k) {
			continue
		}
		state[k] = v
	}
}

// StateEqual reports whether a's entries all exist in b with deeply equal
// values and vice versa.
func StateEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}
