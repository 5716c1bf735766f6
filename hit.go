package searchrev

import (
	"time"

	"github.com/shopspring/decimal"
)

// Columns is the fixed header of the hit feed, in order.
var Columns = []string{
	"hit_time_gmt",
	"date_time",
	"user_agent",
	"ip",
	"event_list",
	"geo_city",
	"geo_region",
	"geo_country",
	"pagename",
	"page_url",
	"product_list",
	"referrer",
}

// column positions within a feed row.
const (
	colHitTime = iota
	colDateTime
	colUserAgent
	colIP
	colEventList
	colGeoCity
	colGeoRegion
	colGeoCountry
	colPageName
	colPageURL
	colProductList
	colReferrer

	numColumns
)

// HitRecord is one row of the hit feed. VisitorKey and HitTime are always
// set; every other field is the empty string when the feed left it blank.
type HitRecord struct {
	HitTime     time.Time
	DateTime    string
	UserAgent   string
	VisitorKey  string
	EventList   string
	GeoCity     string
	GeoRegion   string
	GeoCountry  string
	PageName    string
	PageURL     string
	ProductList string
	Referrer    string
}

// RevenueRecord is the total revenue of one purchase hit.
type RevenueRecord struct {
	VisitorKey string
	Revenue    decimal.Decimal
}

// ExternalReferralRecord is a hit referred by a host outside of the site's
// own domains.
type ExternalReferralRecord struct {
	VisitorKey         string
	Referrer           string
	SearchEngineDomain string
}

// KeywordRecord is the search keyword carried by an external referrer.
type KeywordRecord struct {
	VisitorKey    string
	SearchKeyword string
}

// AttributedRow is one row of the join between revenue, referral, and keyword
// records.
type AttributedRow struct {
	VisitorKey         string
	SearchEngineDomain string
	SearchKeyword      string
	Revenue            decimal.Decimal
}

// AggregatedRow is one line of the final report.
type AggregatedRow struct {
	SearchEngineDomain string
	SearchKeyword      string
	Revenue            decimal.Decimal
}
