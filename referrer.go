package searchrev

import (
	"strings"
)

// DefaultInternalDomains are the domains whose referrals are the site
// referring to itself.
var DefaultInternalDomains = []string{"esshopzilla.com"}

// ReferrerClassifier keeps the hits which were referred by an external host.
type ReferrerClassifier struct {
	// InternalDomains is the set of domain suffixes considered internal.
	InternalDomains []string
}

// NewReferrerClassifier returns a ReferrerClassifier for the given internal
// domains, or DefaultInternalDomains if none are given.
func NewReferrerClassifier(internal ...string) *ReferrerClassifier {
	if len(internal) == 0 {
		internal = DefaultInternalDomains
	}
	domains := make([]string, 0, len(internal))
	for _, d := range internal {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &ReferrerClassifier{InternalDomains: domains}
}

// ReferrerHost returns the host segment of a referrer URL, that is the segment
// at index 2 when splitting on "/". ok is false if there are fewer than three
// segments.
func ReferrerHost(referrer string) (host string, ok bool) {
	parts := strings.SplitN(referrer, "/", 4)
	if len(parts) < 3 {
		return "", false
	}
	return parts[2], true
}

// SearchEngineDomain normalizes a referrer host for reporting: lower case,
// without a leading "www.".
func SearchEngineDomain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// IsInternal reports whether host ends with one of the internal domains.
func (c *ReferrerClassifier) IsInternal(host string) bool {
	host = strings.ToLower(host)
	for _, d := range c.InternalDomains {
		if strings.HasSuffix(host, d) {
			return true
		}
	}
	return false
}

// Classify returns an ExternalReferralRecord for each hit with an external
// referrer. Hits with no referrer, or a referrer with an empty or missing host
// segment, are skipped.
func (c *ReferrerClassifier) Classify(hits []HitRecord) []ExternalReferralRecord {
	var recs []ExternalReferralRecord
	for _, h := range hits {
		if h.Referrer == "" {
			continue
		}
		host, ok := ReferrerHost(h.Referrer)
		if !ok || host == "" || c.IsInternal(host) {
			continue
		}
		recs = append(recs, ExternalReferralRecord{
			VisitorKey:         h.VisitorKey,
			Referrer:           h.Referrer,
			SearchEngineDomain: SearchEngineDomain(host),
		})
	}
	return recs
}
