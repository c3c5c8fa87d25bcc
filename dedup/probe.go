// Package dedup flags persisted records that are likely duplicates of an
// incoming suggestion. Results are advisory and never block ingestion.
package dedup

import (
	"context"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/internal/util"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// DefaultTolerance is the coordinate tolerance in decimal degrees,
// roughly 100m of latitude.
const DefaultTolerance = 0.001

// Finder returns candidate records for a query. Implementations may return
// a superset; the probe applies the final match rules itself.
type Finder interface {
	FindSimilar(ctx context.Context, q monument.SimilarQuery) ([]monument.Record, error)
}

// Probe matches suggestions against existing records by normalized title
// and location. It is safe for concurrent use, and its parameters may be
// retuned while in use.
type Probe struct {
	finder Finder
	logger *zap.SugaredLogger

	mu        sync.RWMutex
	tolerance float64
	strict    bool
}

// Option configures a Probe.
type Option func(*Probe)

// WithTolerance sets the coordinate tolerance in decimal degrees.
func WithTolerance(tolerance float64) Option {
	return func(p *Probe) { p.tolerance = tolerance }
}

// WithStrict requires normalized titles to be equal rather than one
// containing the other.
func WithStrict(strict bool) Option {
	return func(p *Probe) { p.strict = strict }
}

// NewProbe creates a probe over finder.
func NewProbe(finder Finder, logger *zap.SugaredLogger, opts ...Option) *Probe {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &Probe{
		finder:    finder,
		logger:    logger.Named("dedup"),
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetParams retunes the probe.
func (p *Probe) SetParams(tolerance float64, strict bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tolerance = tolerance
	p.strict = strict
}

// Params returns the current tolerance and strictness.
func (p *Probe) Params() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tolerance, p.strict
}

// FindLikelyDuplicates returns references to records whose normalized title
// matches title and whose location is consistent with the given address and
// coordinates. Empty address and nil coordinates do not constrain.
func (p *Probe) FindLikelyDuplicates(ctx context.Context, title string, lat, lon *float64, address string) ([]monument.Ref, error) {
	key := monument.NormalizeTitle(title)
	if key == "" {
		return nil, nil
	}
	tolerance, strict := p.Params()

	q := monument.SimilarQuery{
		TitleKey:  key,
		Address:   strings.TrimSpace(address),
		Latitude:  lat,
		Longitude: lon,
		Tolerance: tolerance,
		Strict:    strict,
	}
	candidates, err := p.finder.FindSimilar(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find records similar to %q", title)
	}

	var refs []monument.Ref
	for _, rec := range candidates {
		if Matches(q, rec) {
			refs = append(refs, monument.Ref{ID: rec.ID, Title: rec.Title})
		}
	}
	if len(refs) > 0 {
		p.logger.Debugw("Likely duplicates found",
			"title", title,
			"count", len(refs))
	}
	return refs, nil
}

// Matches applies the duplicate rules to a single record. The location is
// consistent when no dimension is comparable, or when the addresses are
// equal, or when every comparable coordinate is within tolerance.
func Matches(q monument.SimilarQuery, rec monument.Record) bool {
	recKey := monument.NormalizeTitle(rec.Title)
	if q.Strict {
		if recKey != q.TitleKey {
			return false
		}
	} else if !util.ContainsEither(recKey, q.TitleKey) {
		return false
	}

	constrained := false

	recAddress := strings.TrimSpace(rec.Address)
	if q.Address != "" && recAddress != "" {
		constrained = true
		if strings.EqualFold(normalizeSpace(q.Address), normalizeSpace(recAddress)) {
			return true
		}
	}

	coordsCompared, coordsAgree := compareCoordinates(q, rec)
	if coordsCompared {
		if coordsAgree {
			return true
		}
		constrained = true
	}

	return !constrained
}

func compareCoordinates(q monument.SimilarQuery, rec monument.Record) (compared, agree bool) {
	agree = true
	if q.Latitude != nil && rec.Latitude != nil {
		compared = true
		agree = agree && math.Abs(*q.Latitude-*rec.Latitude) <= q.Tolerance
	}
	if q.Longitude != nil && rec.Longitude != nil {
		compared = true
		agree = agree && math.Abs(*q.Longitude-*rec.Longitude) <= q.Tolerance
	}
	return compared, agree
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
