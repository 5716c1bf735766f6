// Package fake generates plausible hit feeds: visitors arrive from a search
// engine, an internal page or nowhere, browse a few pages and sometimes buy.
package fake

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/shopspring/decimal"
)

// Engine is a search engine a visitor can be referred from.
type Engine struct {
	Host   string
	Marker string
}

// Engines referred from by generated visits.
var Engines = []Engine{
	{"www.google.com", searchrev.QueryMarker},
	{"www.bing.com", searchrev.QueryMarker},
	{"search.yahoo.com", searchrev.YahooMarker},
	{"duckduckgo.com", searchrev.QueryMarker},
}

// Keywords searched for by generated visitors.
var Keywords = []string{"ipod", "zune", "cd player", "headphones", "Ipod Nano", "laptop bag", "usb cable"}

var products = []struct {
	category, name string
	price          int64 // cents
}{
	{"Electronics", "Ipod - Nano - 8GB", 19000},
	{"Electronics", "Ipod - Touch - 32GB", 29000},
	{"Electronics", "Zune - 32GB", 25000},
	{"Audio", "CD Player - Portable", 4999},
	{"Audio", "Headphones - Over Ear", 7950},
	{"Accessories", "USB Cable - 2m", 899},
}

const site = "www.esshopzilla.com"

// HitGenerator generates the hits of random visits.
type HitGenerator struct {
	r   *rand.Rand
	now time.Time

	// PurchaseRate is the fraction of visits which end in a purchase.
	PurchaseRate float64
}

// NewHitGenerator gets a new HitGenerator. The same seed gives the same visits.
func NewHitGenerator(seed int64) *HitGenerator {
	return &HitGenerator{
		r:            rand.New(rand.NewSource(seed)),
		now:          time.Date(2009, time.September, 27, 6, 0, 0, 0, time.UTC),
		PurchaseRate: 0.4,
	}
}

func (g *HitGenerator) ip() string {
	return fmt.Sprintf("%d.%d.%d.%d", g.r.Intn(223)+1, g.r.Intn(256), g.r.Intn(256), g.r.Intn(254)+1)
}

func (g *HitGenerator) tick() time.Time {
	g.now = g.now.Add(time.Duration(g.r.Intn(300)+1) * time.Second)
	return g.now
}

// referrer returns where a visit came from: usually a search engine, with
// some direct and internal arrivals.
func (g *HitGenerator) referrer() string {
	switch n := g.r.Intn(10); {
	case n < 7:
		e := Engines[g.r.Intn(len(Engines))]
		kw := Keywords[g.r.Intn(len(Keywords))]
		return "http://" + e.Host + "/search?" + e.Marker + url.QueryEscape(kw) + "&ie=UTF-8"
	case n < 9:
		return "http://" + site + "/search/?k=" + url.QueryEscape(Keywords[g.r.Intn(len(Keywords))])
	default:
		return ""
	}
}

func (g *HitGenerator) productList() string {
	n := g.r.Intn(3) + 1
	pl := make(searchrev.ProductList, n)
	for i := range pl {
		p := products[g.r.Intn(len(products))]
		pl[i] = searchrev.Product{
			Category: p.category,
			Name:     p.name,
			Quantity: "1",
			Revenue:  decimal.New(p.price, -2),
			Extra:    []string{""},
		}
	}
	return pl.Encode()
}

func (g *HitGenerator) hit(ip, events, page, pageURL, products, referrer string) searchrev.HitRecord {
	t := g.tick()
	return searchrev.HitRecord{
		HitTime:     t,
		DateTime:    t.Format("2006-01-02 15:04:05"),
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		VisitorKey:  ip,
		EventList:   events,
		GeoCity:     "Salem",
		GeoRegion:   "OR",
		GeoCountry:  "US",
		PageName:    page,
		PageURL:     pageURL,
		ProductList: products,
		Referrer:    referrer,
	}
}

// Visit returns the hits of one visitor in time order.
func (g *HitGenerator) Visit() []searchrev.HitRecord {
	ip := g.ip()
	home := "http://" + site
	hits := []searchrev.HitRecord{g.hit(ip, "", "Home", home, "", g.referrer())}
	for i := g.r.Intn(3); i > 0; i-- {
		p := products[g.r.Intn(len(products))]
		pageURL := home + "/product/?pid=" + strings.ToLower(strings.Fields(p.name)[0])
		hits = append(hits, g.hit(ip, "2", p.name, pageURL, p.category+";"+p.name+";1;;", home))
	}
	if g.r.Float64() < g.PurchaseRate {
		checkout := "https://" + site + "/checkout/"
		hits = append(hits, g.hit(ip, "12", "Checkout", checkout, "", home))
		hits = append(hits, g.hit(ip, searchrev.PurchaseEvent, "Order Complete", checkout+"?a=complete", g.productList(), checkout+"?a=confirm"))
	}
	return hits
}

// Source is a searchrev.Source of generated visits.
type Source struct {
	g       *HitGenerator
	max     int
	n       int
	pending []searchrev.HitRecord
}

// NewSource creates a Source yielding max hits (unbounded if max is 0)
// generated from seed.
func NewSource(seed int64, max int) *Source {
	if max <= 0 {
		max = math.MaxInt64
	}
	return &Source{g: NewHitGenerator(seed), max: max}
}

// Generator returns the HitGenerator backing s.
func (s *Source) Generator() *HitGenerator {
	return s.g
}

// Record implements searchrev.Source.
func (s *Source) Record() (searchrev.HitRecord, error) {
	if s.n >= s.max {
		return searchrev.HitRecord{}, io.EOF
	}
	if len(s.pending) == 0 {
		s.pending = s.g.Visit()
	}
	h := s.pending[0]
	s.pending = s.pending[1:]
	s.n++
	return h, nil
}
