package searchrev

import (
	"strings"
)

// Query markers which precede the search term in a search engine referrer.
// Most engines use q, Yahoo uses p.
const (
	QueryMarker = "q="
	YahooMarker = "p="
)

// KeywordExtractor pulls search keywords out of external referrers. It holds
// no state between calls.
type KeywordExtractor struct {
	// Strict fails with an *AmbiguousKeywordError when a referrer carries
	// both markers, instead of concatenating the two candidates.
	Strict bool
}

// markerValue returns the text after the first occurrence of marker, up to
// the next occurrence of marker and then up to the first "&".
func markerValue(referrer, marker string) (string, bool) {
	parts := strings.SplitN(referrer, marker, 3)
	if len(parts) < 2 {
		return "", false
	}
	v := parts[1]
	if i := strings.Index(v, "&"); i >= 0 {
		v = v[:i]
	}
	return v, true
}

// Keyword returns the lower cased search keyword of a referrer. ok is false
// when neither marker is present. The keyword is not URL-decoded, and hyphens
// are kept, so "usb-cable" stays distinct from "usbcable".
func (x KeywordExtractor) Keyword(referrer string) (kw string, ok bool, err error) {
	q, qok := markerValue(referrer, QueryMarker)
	p, pok := markerValue(referrer, YahooMarker)
	if !qok && !pok {
		return "", false, nil
	}
	if qok && pok && x.Strict {
		return "", false, &AmbiguousKeywordError{Referrer: referrer, Q: q, P: p}
	}
	return strings.ToLower(q + p), true, nil
}

// Extract returns a KeywordRecord for each referral which carries a keyword,
// in the order of refs.
func (x KeywordExtractor) Extract(refs []ExternalReferralRecord) ([]KeywordRecord, error) {
	var recs []KeywordRecord
	for _, r := range refs {
		kw, ok, err := x.Keyword(r.Referrer)
		if err != nil {
			if aerr, isAmb := err.(*AmbiguousKeywordError); isAmb {
				aerr.VisitorKey = r.VisitorKey
			}
			return nil, err
		}
		if !ok {
			continue
		}
		recs = append(recs, KeywordRecord{VisitorKey: r.VisitorKey, SearchKeyword: kw})
	}
	return recs, nil
}
