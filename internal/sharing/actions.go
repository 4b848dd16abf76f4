package sharing

import (
	"bytes"
	"encoding/json"
)

// Action kinds appearing in NDJSON response bodies. The parquet framing uses
// protocol/metaData/file lines; the delta framing wraps log actions as
// add/remove/cdc. Every line carries exactly one top-level key naming its
// kind.
const (
	ActionProtocol = "protocol"
	ActionMetadata = "metaData"
	ActionFile     = "file"
	ActionAdd      = "add"
	ActionRemove   = "remove"
	ActionCDC      = "cdc"
	// ActionUnknown marks lines that do not match either framing. They are
	// still relayed untouched.
	ActionUnknown = "unknown"
)

var knownActionKinds = map[string]bool{
	ActionProtocol: true,
	ActionMetadata: true,
	ActionFile:     true,
	ActionAdd:      true,
	ActionRemove:   true,
	ActionCDC:      true,
}

// Action is one decoded NDJSON line: its declared kind and the raw payload
// under the wrapper key. The original line bytes are never modified; bodies
// are relayed to clients byte-for-byte regardless of what decoding finds.
type Action struct {
	Kind string
	Body json.RawMessage
}

// DecodeActions parses an NDJSON body into its tagged action lines. Decoding
// is tolerant: unparseable or unrecognized lines come back as ActionUnknown
// with the whole line as body. Used for auditing relayed responses, never for
// rewriting them. The authorization granularity is the whole table, so
// dropping individual file lines here would fabricate row-level security that
// no policy defines.
func DecodeActions(body []byte) []Action {
	var actions []Action
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(line, &wrapper); err != nil || len(wrapper) == 0 {
			actions = append(actions, Action{Kind: ActionUnknown, Body: line})
			continue
		}

		kind, payload := dominantKey(wrapper)
		if !knownActionKinds[kind] {
			actions = append(actions, Action{Kind: ActionUnknown, Body: line})
			continue
		}
		actions = append(actions, Action{Kind: kind, Body: payload})
	}
	return actions
}

// dominantKey picks the action key from a decoded wrapper. Delta-framed file
// lines can carry sibling fields (version, timestamp, expirationTimestamp)
// next to the action key, so the first recognized key wins over strict
// single-key matching.
func dominantKey(wrapper map[string]json.RawMessage) (string, json.RawMessage) {
	for key, payload := range wrapper {
		if knownActionKinds[key] {
			return key, payload
		}
	}
	for key, payload := range wrapper {
		return key, payload
	}
	return "", nil
}

// CountActions summarizes a decoded body as kind → line count, for debug
// logging of relayed responses.
func CountActions(actions []Action) map[string]int {
	counts := make(map[string]int)
	for _, a := range actions {
		counts[a.Kind]++
	}
	return counts
}
