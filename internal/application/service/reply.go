package service

import (
	"fmt"
	"strings"
	"time"
)

// FormatReply renders a resolution as a plain-text chat reply.
func FormatReply(res Resolution, links *MapLinks, now time.Time) string {
	if !res.Found {
		msg := fmt.Sprintf("No position is known for %s.", res.AssetID)
		if res.RateLimited() {
			msg += " The tracking provider is throttling lookups for this asset, try again in a few minutes."
		}
		return msg
	}

	var sb strings.Builder
	p := res.Position
	fmt.Fprintf(&sb, "%s: %.6f, %.6f\n", res.AssetID, p.Latitude, p.Longitude)
	if p.FixTime != "" {
		fmt.Fprintf(&sb, "Fix time: %s\n", p.FixTime)
	}
	if res.Stale() {
		fmt.Fprintf(&sb, "Last known position, possibly stale (age %s).\n", now.Sub(p.FetchedAt).Truncate(time.Second))
	}
	if links != nil {
		fmt.Fprintf(&sb, "Map: %s\n", links.ViewURL)
		fmt.Fprintf(&sb, "Satellite: %s", links.ImageURL)
	}
	return strings.TrimRight(sb.String(), "\n")
}
