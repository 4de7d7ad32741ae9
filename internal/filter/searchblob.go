package filter

import (
	"strings"

	"github.com/wannasleep66/vibe-barter-sub001/internal/model"
)

// SearchBlob builds the denormalized free-text blob for a listing:
// title + description + exchange preferences + location + tag names,
// lowercased and space-joined. The write path must call this whenever a
// listing's text fields or tags change; the blob resync job repairs
// listings that were left dirty.
func SearchBlob(l *model.Listing, tagNames []string) string {
	parts := make([]string, 0, 4+len(tagNames))
	for _, p := range []string{l.Title, l.Description, l.ExchangePreferences, l.Location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for _, name := range tagNames {
		if name = strings.TrimSpace(name); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
