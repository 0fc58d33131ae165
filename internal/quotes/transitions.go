package quotes

import "github.com/etchbroker/makelar-backend/pkg/enums"

// transitions is the complete quote state graph. Statuses absent from the
// map, or mapped to nothing, are terminal.
var transitions = map[enums.QuoteStatus][]enums.QuoteStatus{
	enums.QuoteStatusDraft: {
		enums.QuoteStatusSent,
		enums.QuoteStatusExpired,
	},
	enums.QuoteStatusOpen: {
		enums.QuoteStatusSent,
		enums.QuoteStatusAccepted,
		enums.QuoteStatusRejected,
		enums.QuoteStatusCountered,
		enums.QuoteStatusExpired,
		enums.QuoteStatusCancelled,
	},
	enums.QuoteStatusSent: {
		enums.QuoteStatusAccepted,
		enums.QuoteStatusRejected,
		enums.QuoteStatusCountered,
		enums.QuoteStatusExpired,
	},
	enums.QuoteStatusCountered: {
		enums.QuoteStatusSent,
		enums.QuoteStatusCountered,
		enums.QuoteStatusAccepted,
		enums.QuoteStatusRejected,
		enums.QuoteStatusExpired,
	},
}

// responseTargets maps a vendor response onto the status it produces.
var responseTargets = map[enums.QuoteResponse]enums.QuoteStatus{
	enums.QuoteResponseAccept:  enums.QuoteStatusAccepted,
	enums.QuoteResponseReject:  enums.QuoteStatusRejected,
	enums.QuoteResponseCounter: enums.QuoteStatusCountered,
}

var responseVerbs = map[enums.QuoteResponse]string{
	enums.QuoteResponseAccept:  "accepted",
	enums.QuoteResponseReject:  "rejected",
	enums.QuoteResponseCounter: "countered",
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to enums.QuoteStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from from.
func AllowedTransitions(from enums.QuoteStatus) []enums.QuoteStatus {
	next := transitions[from]
	out := make([]enums.QuoteStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status enums.QuoteStatus) bool {
	return len(transitions[status]) == 0
}

// RequiresVendorAction reports whether the quote is waiting on the vendor.
func RequiresVendorAction(status enums.QuoteStatus) bool {
	return status == enums.QuoteStatusSent || status == enums.QuoteStatusOpen
}

// RequiresAdminAction reports whether the quote is waiting on the broker.
func RequiresAdminAction(status enums.QuoteStatus) bool {
	return status == enums.QuoteStatusDraft || status == enums.QuoteStatusCountered
}

// DefaultActiveStatuses are the statuses the duplication guard treats as open.
func DefaultActiveStatuses() []enums.QuoteStatus {
	return []enums.QuoteStatus{enums.QuoteStatusOpen, enums.QuoteStatusSent, enums.QuoteStatusCountered}
}
