package stripeclient

import "strings"

// NormalizeSubscriptionStatus collapses provider statuses into the buckets
// the frontend cares about. Used for display only; the raw status is what
// gets persisted.
func NormalizeSubscriptionStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "":
		return "none"
	case "active":
		return "active"
	case "trialing":
		return "trialing"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return strings.TrimSpace(s)
	}
}
