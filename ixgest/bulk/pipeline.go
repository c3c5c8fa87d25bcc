package bulk

import (
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
)

// Pipeline is the entry point used by the CLI and the HTTP server:
// validate an upload, submit its accepted rows, and poll the job.
type Pipeline struct {
	validator *Validator
	registry  *async.Registry
}

// NewPipeline combines a validator with a job registry that has the
// ingestion handler registered.
func NewPipeline(validator *Validator, registry *async.Registry) *Pipeline {
	return &Pipeline{validator: validator, registry: registry}
}

// Validate decodes, maps and validates an upload without side effects.
func (p *Pipeline) Validate(up Upload) (*Report, error) {
	return p.validator.ValidateUpload(up)
}

// Submit starts ingestion of the report's valid rows and returns the job id
// immediately.
func (p *Pipeline) Submit(report *Report) (int64, error) {
	if report == nil {
		return 0, errors.NewInvalidRequestError("nil report")
	}
	return p.SubmitItems(report.Accepted())
}

// SubmitItems starts ingestion of already-accepted suggestions.
func (p *Pipeline) SubmitItems(items []ingest.Item) (int64, error) {
	id, err := p.registry.Submit(ingest.HandlerName, ingest.Payload{Items: items})
	if err != nil {
		return 0, errors.Wrap(err, "failed to submit ingestion job")
	}
	return id, nil
}

// Poll returns the state of a job.
func (p *Pipeline) Poll(id int64) (async.Snapshot, error) {
	return p.registry.Poll(id)
}

// Subscribe streams snapshots of a job until it completes.
func (p *Pipeline) Subscribe(id int64) (<-chan async.Snapshot, func(), error) {
	return p.registry.Subscribe(id)
}

// Registry returns the job registry.
func (p *Pipeline) Registry() *async.Registry {
	return p.registry
}
