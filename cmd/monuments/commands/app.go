package commands

import (
	"context"
	"database/sql"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
	"github.com/team-monumental/monuments-and-memorials-sub000/db"
	"github.com/team-monumental/monuments-and-memorials-sub000/dedup"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/geocode"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/bulk"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage/objectstore"
)

// app is the wired pipeline shared by the ingest and server commands
type app struct {
	cfg      *am.Config
	conn     *sql.DB
	pipeline *bulk.Pipeline
	probe    *dedup.Probe
	registry *async.Registry
}

// loadConfig loads and validates the configuration
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"), "run 'monuments am where' to see which files were read")
	}
	return cfg, nil
}

// openDatabase opens and migrates the database at dbPath, or at the
// configured path when dbPath is empty.
func openDatabase(cfg *am.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	conn, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return conn, nil
}

// newValidator builds a validator from the ingest section
func newValidator(cfg *am.Config, log *zap.SugaredLogger) *bulk.Validator {
	return bulk.NewValidator(log,
		bulk.WithWorkers(cfg.Ingest.Workers),
		bulk.WithDelimiter(cfg.DelimiterRune()),
		bulk.WithMaxEntryBytes(cfg.MaxEntryBytes()),
	)
}

// newApp wires storage, dedup, geocoding and the job registry. Jobs run
// under ctx.
func newApp(ctx context.Context, cfg *am.Config, dbPath string) (*app, error) {
	log := logger.Logger

	conn, err := openDatabase(cfg, dbPath)
	if err != nil {
		return nil, err
	}

	repo := storage.NewSQLRepository(conn, log)
	files, err := objectstore.NewFileStore(cfg.Storage.Dir, cfg.Storage.BaseURL, log)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to prepare image storage")
	}
	store := objectstore.NewRateLimited(files, cfg.Storage.UploadsPerSecond, cfg.Storage.UploadBurst)

	probe := dedup.NewProbe(repo, log,
		dedup.WithTolerance(cfg.Dedup.CoordinateTolerance),
		dedup.WithStrict(cfg.Dedup.Strict))

	opts := []ingest.Option{ingest.WithProbe(probe)}
	if cfg.Geocode.URL != "" {
		g, err := newGeocoder(cfg, log)
		if err != nil {
			conn.Close()
			return nil, err
		}
		opts = append(opts, ingest.WithGeocoder(g))
	}

	handlers := async.NewHandlerRegistry()
	handlers.Register(ingest.NewHandler(repo, store, log, opts...))
	registry := async.NewRegistry(ctx, handlers, log)

	return &app{
		cfg:      cfg,
		conn:     conn,
		pipeline: bulk.NewPipeline(newValidator(cfg, log), registry),
		probe:    probe,
		registry: registry,
	}, nil
}

func newGeocoder(cfg *am.Config, log *zap.SugaredLogger) (*geocode.Nominatim, error) {
	opts := []geocode.Option{
		geocode.WithRate(cfg.Geocode.RequestsPerSecond),
		geocode.WithLogger(log),
	}
	if cfg.Geocode.UserAgent != "" {
		opts = append(opts, geocode.WithUserAgent(cfg.Geocode.UserAgent))
	}
	if cfg.Geocode.TimeoutSeconds > 0 {
		opts = append(opts, geocode.WithTimeout(time.Duration(cfg.Geocode.TimeoutSeconds)*time.Second))
	}
	if cfg.Geocode.AllowPrivate {
		opts = append(opts, geocode.WithPrivateNetwork())
	}
	g, err := geocode.NewNominatim(cfg.Geocode.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure geocoder")
	}
	return g, nil
}

// Close waits for running jobs and closes the database.
func (a *app) Close() error {
	a.registry.Wait()
	return a.conn.Close()
}

// readUpload assembles an upload from files on disk. A .zip given as the
// spreadsheet is used as the archive. Column mappings from ingest.mapping_file
// are overridden by mappingPath.
func readUpload(cfg *am.Config, spreadsheetPath, archivePath, mappingPath string) (bulk.Upload, error) {
	var up bulk.Upload

	data, err := os.ReadFile(spreadsheetPath)
	if err != nil {
		return up, errors.Wrapf(err, "failed to read %s", spreadsheetPath)
	}
	if bulk.IsZip(data) {
		if archivePath != "" {
			return up, errors.WithHint(
				errors.Newf("%s is a zip archive and --archive was also given", spreadsheetPath),
				"pass the .csv as the argument, or bundle it inside the single .zip")
		}
		up.Archive = data
	} else {
		up.Spreadsheet = data
	}

	if archivePath != "" {
		if up.Archive, err = os.ReadFile(archivePath); err != nil {
			return up, errors.Wrapf(err, "failed to read %s", archivePath)
		}
	}

	up.Mapping = map[string]string{}
	for _, path := range []string{cfg.Ingest.MappingFile, mappingPath} {
		if path == "" {
			continue
		}
		mapping, err := loadMappingFile(path)
		if err != nil {
			return up, err
		}
		for k, v := range mapping {
			up.Mapping[k] = v
		}
	}
	return up, nil
}

func loadMappingFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mapping %s", path)
	}
	defer f.Close()
	mapping, err := tabular.LoadMapping(f)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	return mapping, nil
}
