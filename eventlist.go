package searchrev

import (
	"strings"
)

// PurchaseEvent is the event list value of a completed purchase.
const PurchaseEvent = "1"

// EventList is the decoded form of the event_list column: the identifiers of
// the events which fired on a hit, in feed order.
type EventList []string

// DecodeEventList splits a comma separated event list. Empty entries are
// dropped, so an empty string decodes to an empty list.
func DecodeEventList(s string) EventList {
	if strings.TrimSpace(s) == "" {
		return EventList{}
	}
	parts := strings.Split(s, ",")
	el := make(EventList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		el = append(el, p)
	}
	return el
}

// Encode is the inverse of DecodeEventList.
func (el EventList) Encode() string {
	return strings.Join(el, ",")
}

// Has reports whether event is in the list.
func (el EventList) Has(event string) bool {
	for _, e := range el {
		if e == event {
			return true
		}
	}
	return false
}
