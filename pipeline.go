package searchrev

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Pipeline wires the stages together. The zero value is not usable, use
// NewPipeline.
type Pipeline struct {
	Revenue    *RevenueExtractor
	Referrers  *ReferrerClassifier
	Keywords   KeywordExtractor
	Translator Translator

	// Concurrent runs revenue extraction alongside referral classification
	// and keyword extraction. The result is the same either way.
	Concurrent bool

	Log   Logger
	Stats Statter

	// Now dates the report. Defaults to time.Now.
	Now func() time.Time
}

// NewPipeline returns a Pipeline with the default stages, an in-memory
// Translator and no logging or stats.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Revenue:    NewRevenueExtractor(),
		Referrers:  NewReferrerClassifier(),
		Translator: NewMapTranslator(),
		Log:        NopLogger{},
		Stats:      NopStatter{},
		Now:        time.Now,
	}
}

// Result holds the report of a run along with the joined rows it was
// aggregated from.
type Result struct {
	Report
	Hits       int
	Attributed []AttributedRow
}

// Run collects every hit from src and processes them. Any error aborts the run
// and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	hits, err := Collect(src)
	if err != nil {
		return nil, errors.Wrap(err, "collecting hits")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := p.Process(hits)
	if err != nil {
		return nil, err
	}
	p.Stats.Timing("run", time.Since(start), 1)
	p.Log.Printf("run %s: %d hits, %d attributed rows, %d report rows in %v", res.RunID, res.Hits, len(res.Attributed), len(res.Rows), time.Since(start))
	return res, nil
}

// Process runs the stages over hits which have already been collected.
func (p *Pipeline) Process(hits []HitRecord) (*Result, error) {
	p.Stats.Count("hits", int64(len(hits)), 1)

	var (
		revs []RevenueRecord
		refs []ExternalReferralRecord
		kws  []KeywordRecord
	)
	revenue := func() (err error) {
		revs, err = p.Revenue.Extract(hits)
		return errors.Wrap(err, "extracting revenue")
	}
	referrals := func() (err error) {
		refs = p.Referrers.Classify(hits)
		kws, err = p.Keywords.Extract(refs)
		return errors.Wrap(err, "extracting keywords")
	}
	if p.Concurrent {
		var g errgroup.Group
		g.Go(revenue)
		g.Go(referrals)
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := revenue(); err != nil {
			return nil, err
		}
		if err := referrals(); err != nil {
			return nil, err
		}
	}
	p.Stats.Count("revenue", int64(len(revs)), 1)
	p.Stats.Count("referrals", int64(len(refs)), 1)
	p.Stats.Count("keywords", int64(len(kws)), 1)
	p.Log.Debugf("%d revenue records, %d external referrals, %d keywords", len(revs), len(refs), len(kws))

	rows, err := Join(p.Translator, revs, refs, kws)
	if err != nil {
		return nil, errors.Wrap(err, "joining")
	}
	p.Stats.Count("joined", int64(len(rows)), 1)

	agg, err := Aggregate(p.Translator, rows)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating")
	}
	p.Stats.Count("groups", int64(len(agg)), 1)

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return &Result{
		Report: Report{
			RunID: uuid.New().String(),
			Date:  now(),
			Rows:  agg,
		},
		Hits:       len(hits),
		Attributed: rows,
	}, nil
}
