// Package cursor encodes and decodes Relay-style connection cursors.
// Cursors are opaque base64 encodings of an offset into a result window.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const prefix = "arrayconnection:"

// OffsetToCursor builds the opaque cursor for a zero-based offset.
func OffsetToCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(prefix + strconv.Itoa(offset)))
}

// CursorToOffset parses a cursor produced by OffsetToCursor.
func CursorToOffset(raw string) (int, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	rest, ok := strings.CutPrefix(string(data), prefix)
	if !ok {
		return 0, fmt.Errorf("invalid cursor: missing %q prefix", strings.TrimSuffix(prefix, ":"))
	}
	offset, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor offset: %w", err)
	}
	if offset < 0 {
		return 0, fmt.Errorf("invalid cursor offset: %d is negative", offset)
	}
	return offset, nil
}

// AfterOffset resolves an optional "after" argument. An empty cursor means
// no offset and yields (0, false).
func AfterOffset(after string) (int, bool, error) {
	if after == "" {
		return 0, false, nil
	}
	offset, err := CursorToOffset(after)
	if err != nil {
		return 0, false, err
	}
	return offset, true, nil
}
