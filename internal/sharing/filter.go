package sharing

import (
	"encoding/json"
	"fmt"
)

// ListedItem is the identity subset of a listing entry used for access
// decisions. The full entry bytes pass through unmodified when kept.
type ListedItem struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
	Share  string `json:"share"`
}

// listingPage mirrors the upstream pagination envelope. Items keep their raw
// bytes; NextPageToken is a pointer so an absent token stays absent after
// re-encoding.
type listingPage struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken *string           `json:"nextPageToken,omitempty"`
}

// FilterListing re-encodes a listing response body, keeping only the items
// the predicate accepts. Upstream ordering is preserved, surviving item bytes
// are untouched, and the pagination token is carried over unchanged.
func FilterListing(body []byte, keep func(ListedItem) bool) ([]byte, error) {
	var page listingPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode listing page: %w", err)
	}

	filtered := make([]json.RawMessage, 0, len(page.Items))
	for _, raw := range page.Items {
		var item ListedItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode listing item: %w", err)
		}
		if keep(item) {
			filtered = append(filtered, raw)
		}
	}
	page.Items = filtered

	out, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("encode listing page: %w", err)
	}
	return out, nil
}
