package searchrev_test

import (
	"errors"
	"testing"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/test"
)

func TestKeyword(t *testing.T) {
	for _, tst := range []struct {
		referrer string
		kw       string
		ok       bool
	}{
		{"http://www.google.com/search?q=shoes&x=1", "shoes", true},
		{"http://www.google.com/search?hl=en&client=firefox-a&hs=ZzP&q=Ipod&aq=f&oq=&aqi=", "ipod", true},
		{"http://www.bing.com/search?q=Zune&go=&form=QBLH&qs=n", "zune", true},
		{"http://search.yahoo.com/search?p=cd+player&toggle=1&cop=mss&ei=UTF-8", "cd+player", true},
		{"http://www.google.com/search?q=usb-cable", "usb-cable", true},
		{"http://www.google.com/search?q=", "", true},
		{"http://www.example.com/?q=a&p=b", "ab", true},
		{"http://www.bing.com/", "", false},
		{"http://www.google.com/search?as_q=x", "x", true},
	} {
		kw, ok, err := searchrev.KeywordExtractor{}.Keyword(tst.referrer)
		test.ErrNil(t, err, tst.referrer)
		if kw != tst.kw || ok != tst.ok {
			t.Errorf("Keyword(%q) = %q, %v; want %q, %v", tst.referrer, kw, ok, tst.kw, tst.ok)
		}
	}
}

func TestKeywordIdempotent(t *testing.T) {
	x := searchrev.KeywordExtractor{}
	for _, ref := range []string{
		"http://www.google.com/search?q=Ipod+Nano&ie=UTF-8",
		"http://search.yahoo.com/search?p=CD+Player",
	} {
		kw1, _, _ := x.Keyword(ref)
		kw2, _, _ := x.Keyword(ref)
		if kw1 != kw2 {
			t.Fatalf("repeated extraction differs: %q %q", kw1, kw2)
		}
		again, ok, err := x.Keyword("http://www.google.com/search?q=" + kw1)
		if err != nil || !ok || again != kw1 {
			t.Fatalf("extracting %q again gave %q, %v, %v", kw1, again, ok, err)
		}
	}
}

func TestKeywordExtract(t *testing.T) {
	refs := []searchrev.ExternalReferralRecord{
		{VisitorKey: "1", Referrer: "http://www.google.com/search?q=Ipod"},
		{VisitorKey: "2", Referrer: "http://www.bing.com/"},
		{VisitorKey: "3", Referrer: "http://search.yahoo.com/search?p=cd+player"},
	}
	kws, err := searchrev.KeywordExtractor{}.Extract(refs)
	test.ErrNil(t, err, "extracting")
	test.MustBe(t, []searchrev.KeywordRecord{
		{VisitorKey: "1", SearchKeyword: "ipod"},
		{VisitorKey: "3", SearchKeyword: "cd+player"},
	}, kws)
}

func TestKeywordStrict(t *testing.T) {
	x := searchrev.KeywordExtractor{Strict: true}
	_, err := x.Extract([]searchrev.ExternalReferralRecord{
		{VisitorKey: "9", Referrer: "http://www.google.com/search?q=Ipod"},
		{VisitorKey: "10", Referrer: "http://www.example.com/?q=a&p=b"},
	})
	var aerr *searchrev.AmbiguousKeywordError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AmbiguousKeywordError, got %v", err)
	}
	test.MustBe(t, searchrev.AmbiguousKeywordError{VisitorKey: "10", Referrer: "http://www.example.com/?q=a&p=b", Q: "a", P: "b"}, *aerr)
}
