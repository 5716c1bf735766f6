package searchrev_test

import (
	"testing"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/test"
)

func TestReferrerHost(t *testing.T) {
	for _, tst := range []struct {
		in   string
		host string
		ok   bool
	}{
		{"http://www.google.com/search?q=ipod", "www.google.com", true},
		{"https://search.yahoo.com", "search.yahoo.com", true},
		{"http://www.bing.com/", "www.bing.com", true},
		{"www.google.com", "", false},
		{"http:", "", false},
		{"http:///path", "", true},
	} {
		host, ok := searchrev.ReferrerHost(tst.in)
		if host != tst.host || ok != tst.ok {
			t.Errorf("ReferrerHost(%q) = %q, %v; want %q, %v", tst.in, host, ok, tst.host, tst.ok)
		}
	}
}

func TestSearchEngineDomain(t *testing.T) {
	test.MustBe(t, "google.com", searchrev.SearchEngineDomain("www.google.com"))
	test.MustBe(t, "google.com", searchrev.SearchEngineDomain("WWW.Google.com"))
	test.MustBe(t, "search.yahoo.com", searchrev.SearchEngineDomain("search.yahoo.com"))
}

func TestClassify(t *testing.T) {
	hits := []searchrev.HitRecord{
		{VisitorKey: "1", Referrer: "http://www.google.com/search?q=ipod"},
		{VisitorKey: "2", Referrer: "http://www.esshopzilla.com/search/?k=Ipod"},
		{VisitorKey: "3", Referrer: "https://checkout.ESSHOPZILLA.com/?a=confirm"},
		{VisitorKey: "4", Referrer: ""},
		{VisitorKey: "5", Referrer: "bookmark"},
		{VisitorKey: "6", Referrer: "http:///nohost"},
		{VisitorKey: "7", Referrer: "http://search.yahoo.com/search?p=cd+player"},
	}
	refs := searchrev.NewReferrerClassifier().Classify(hits)
	test.MustBe(t, []searchrev.ExternalReferralRecord{
		{VisitorKey: "1", Referrer: "http://www.google.com/search?q=ipod", SearchEngineDomain: "google.com"},
		{VisitorKey: "7", Referrer: "http://search.yahoo.com/search?p=cd+player", SearchEngineDomain: "search.yahoo.com"},
	}, refs)

	c := searchrev.NewReferrerClassifier("google.com", " ")
	test.MustBe(t, []string{"google.com"}, c.InternalDomains)
	refs = c.Classify(hits)
	var keys []string
	for _, r := range refs {
		keys = append(keys, r.VisitorKey)
	}
	test.MustBe(t, []string{"2", "3", "7"}, keys, "custom internal domains")
}
