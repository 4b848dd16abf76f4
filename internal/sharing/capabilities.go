package sharing

import (
	"fmt"
	"sort"
	"strings"
)

// ParseCapabilities decodes a delta-sharing-capabilities header value of the
// form "key=value;key=value". The header itself is forwarded verbatim; this
// only validates syntax and lets handlers inspect individual entries.
func ParseCapabilities(header string) (map[string]string, error) {
	parsed := make(map[string]string)
	if header == "" {
		return parsed, nil
	}
	for _, pair := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("malformed capabilities entry %q", pair)
		}
		parsed[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return parsed, nil
}

// FormatCapabilities renders a capabilities map back into header form with
// deterministic key order.
func FormatCapabilities(caps map[string]string) string {
	keys := make([]string, 0, len(caps))
	for k := range caps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + caps[k]
	}
	return strings.Join(pairs, ";")
}
