// Package bulk validates uploaded spreadsheets and hands the accepted rows
// to the ingestion job.
package bulk

import (
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/archive"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/convert"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
)

// Validator converts every data row of a batch. It never writes anything
// and may be called repeatedly.
type Validator struct {
	converter     *convert.Converter
	workers       int
	delimiter     rune
	maxEntryBytes int64
	logger        *zap.SugaredLogger
}

// Option configures a Validator.
type Option func(*Validator)

// WithWorkers bounds how many rows are converted at once.
func WithWorkers(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithDelimiter sets the cell delimiter for uploaded spreadsheets.
func WithDelimiter(d rune) Option {
	return func(v *Validator) {
		if d != 0 {
			v.delimiter = d
		}
	}
}

// WithMaxEntryBytes caps the size of any archive member read.
func WithMaxEntryBytes(n int64) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxEntryBytes = n
		}
	}
}

// WithClock sets the clock used to date contributions.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.converter.Now = now }
}

// NewValidator creates a validator.
func NewValidator(logger *zap.SugaredLogger, opts ...Option) *Validator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	v := &Validator{
		converter:     convert.NewConverter(logger),
		workers:       runtime.GOMAXPROCS(0),
		delimiter:     tabular.DefaultDelimiter,
		maxEntryBytes: archive.DefaultMaxEntryBytes,
		logger:        logger.Named("bulk"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate treats rows[0] as the header, resolves it against overrides once,
// and converts the remaining rows in parallel. ar may be nil.
func (v *Validator) Validate(rows [][]string, overrides map[string]string, ar archive.Extractor) *Report {
	report := &Report{}
	if len(rows) == 0 {
		return report
	}

	fields := tabular.ResolveFields(rows[0], overrides)
	data := rows[1:]
	report.Results = make([]*convert.ConversionResult, len(data))

	var g errgroup.Group
	g.SetLimit(v.workers)
	for i, cells := range data {
		g.Go(func() error {
			report.Results[i] = v.converter.ConvertRow(i+1, cells, fields, ar)
			return nil
		})
	}
	_ = g.Wait()

	v.logger.Infow("Batch validated",
		"rows", len(data),
		"valid", len(report.Valid()),
		"invalid", len(report.Invalid()),
		"workers", v.workers)
	return report
}
