// Package ingest persists validated suggestions as an async job: geocode,
// duplicate probe, save, tag, then upload images, one row at a time.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/db"
	"github.com/team-monumental/monuments-and-memorials-sub000/dedup"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage/objectstore"
)

// HandlerName routes bulk ingestion jobs.
const HandlerName = "monuments.bulk-ingest"

// Item is one accepted suggestion with the spreadsheet row it came from.
type Item struct {
	Row        int
	Suggestion *monument.Suggestion
}

// Payload is the job payload for HandlerName.
type Payload struct {
	Items []Item
}

// Handler implements async.JobHandler for bulk ingestion.
type Handler struct {
	repo     storage.Repository
	store    objectstore.ObjectStore
	probe    *dedup.Probe
	geocoder Geocoder
	logger   *zap.SugaredLogger
}

// Option configures a Handler.
type Option func(*Handler)

// WithProbe enables duplicate advisories.
func WithProbe(p *dedup.Probe) Option {
	return func(h *Handler) { h.probe = p }
}

// WithGeocoder enables reverse geocoding of rows that only have coordinates.
func WithGeocoder(g Geocoder) Option {
	return func(h *Handler) { h.geocoder = g }
}

// NewHandler creates an ingestion handler.
func NewHandler(repo storage.Repository, store objectstore.ObjectStore, log *zap.SugaredLogger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Handler{repo: repo, store: store, logger: log.Named("ingest")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements async.JobHandler.
func (h *Handler) Name() string { return HandlerName }

// Execute implements async.JobHandler. Rows are processed in submission
// order and progress is advanced after each one. Per-row problems become
// outcomes; only a closed database or a cancelled context stops the job.
func (h *Handler) Execute(ctx context.Context, job *async.Job) error {
	var items []Item
	switch p := job.Payload.(type) {
	case Payload:
		items = p.Items
	case *Payload:
		items = p.Items
	default:
		return errors.Newf("unexpected payload type %T for %s", job.Payload, HandlerName)
	}

	log := logger.FromContext(ctx, h.logger)
	job.SetTotal(len(items))

	result := &Result{Total: len(items), Rows: make([]RowOutcome, 0, len(items))}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "ingestion interrupted after %d of %d rows", i, len(items))
		}

		outcome, err := h.ingestRow(ctx, log, item)
		if err != nil {
			return err
		}
		result.add(outcome)
		job.Advance(i + 1)
	}

	job.SetResult(result)
	log.Infow("Bulk ingestion finished",
		"inserted", result.Inserted,
		logger.FieldTotalCount, result.Total,
		"advisories", len(result.Advisories))
	return nil
}

func (h *Handler) ingestRow(ctx context.Context, log *zap.SugaredLogger, item Item) (RowOutcome, error) {
	// Enrichment writes to this copy; the validated suggestion stays as reported.
	s := item.Suggestion.Clone()
	out := RowOutcome{Row: item.Row}
	if s == nil {
		out.Error = "empty suggestion"
		return out, nil
	}
	out.Title = s.Title
	log = log.With(logger.FieldRow, item.Row)

	if note := h.enrich(ctx, s); note != "" {
		out.Notes = append(out.Notes, note)
	}

	if h.probe != nil {
		refs, err := h.probe.FindLikelyDuplicates(ctx, s.Title, s.Latitude, s.Longitude, s.Address)
		if err != nil {
			log.Warnw("Duplicate probe failed", logger.FieldError, err)
		}
		out.Duplicates = refs
	}

	id, err := h.repo.Save(ctx, s)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return out, errors.Wrapf(err, "row %d", item.Row)
		}
		log.Errorw("Failed to save monument", logger.FieldError, err)
		out.Error = err.Error()
		return out, nil
	}
	out.RecordID = id
	out.Inserted = true

	for _, name := range s.Materials {
		if _, err := h.repo.SaveTagOrMaterial(ctx, name, true, id); err != nil {
			log.Warnw("Failed to save material", "name", name, logger.FieldError, err)
			out.Notes = append(out.Notes, fmt.Sprintf("Material %q could not be saved", name))
		}
	}
	for _, name := range s.Tags {
		if _, err := h.repo.SaveTagOrMaterial(ctx, name, false, id); err != nil {
			log.Warnw("Failed to save tag", "name", name, logger.FieldError, err)
			out.Notes = append(out.Notes, fmt.Sprintf("Tag %q could not be saved", name))
		}
	}

	for _, img := range s.Images {
		url, err := h.attachImage(ctx, id, img, out.ImagesAttached == 0)
		if err != nil {
			if url != "" {
				log.Warnw("Image uploaded but not recorded",
					logger.FieldRecordID, id,
					logger.FieldEntry, img.Name,
					"url", url,
					logger.FieldError, err)
				out.UnrecordedImages = append(out.UnrecordedImages, url)
			} else {
				log.Warnw("Image upload failed",
					logger.FieldRecordID, id,
					logger.FieldEntry, img.Name,
					logger.FieldError, err)
			}
			out.ImageFailures = append(out.ImageFailures, img.Name)
			continue
		}
		out.ImagesAttached++
	}

	log.Debugw("Row ingested",
		logger.FieldRecordID, id,
		"images", out.ImagesAttached,
		"image_failures", len(out.ImageFailures))
	return out, nil
}

// attachImage uploads img and records it against the monument. When the
// upload succeeds but the record does not, the returned URL names the
// stored object alongside the error.
func (h *Handler) attachImage(ctx context.Context, monumentID int64, img monument.Image, primary bool) (string, error) {
	url, err := h.store.Upload(ctx, img.Data, img.Name)
	if err != nil {
		return "", err
	}
	_, err = h.repo.SaveImage(ctx, monumentID, storage.ImageRecord{
		URL:          url,
		Primary:      primary,
		Caption:      img.Caption,
		AltText:      img.AltText,
		ReferenceURL: img.ReferenceURL,
		ContentType:  img.ContentType,
	})
	if err != nil {
		return url, errors.Wrapf(err, "failed to record image %s", url)
	}
	return url, nil
}

// uploadAdvisory summarizes a row's images that were not attached.
func uploadAdvisory(o RowOutcome) string {
	total := o.ImagesAttached + len(o.ImageFailures)
	msg := fmt.Sprintf("Row %d (%s): %d of %d images could not be attached: %s",
		o.Row, o.Title, len(o.ImageFailures), total, strings.Join(o.ImageFailures, ", "))
	if len(o.UnrecordedImages) > 0 {
		msg += fmt.Sprintf("; uploaded but not recorded: %s", strings.Join(o.UnrecordedImages, ", "))
	}
	return msg
}
