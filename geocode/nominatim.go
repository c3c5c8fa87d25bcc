// Package geocode resolves coordinates to street addresses through a
// Nominatim-compatible reverse geocoding API.
package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/internal/httpclient"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
)

// Defaults follow the public Nominatim usage policy: one request per
// second and an identifying User-Agent.
const (
	DefaultRequestsPerSecond = 1.0
	DefaultTimeout           = 10 * time.Second
	DefaultUserAgent         = "monuments-bulk-ingest/1.0"
)

// Nominatim is an ingest.Geocoder backed by a Nominatim reverse endpoint.
type Nominatim struct {
	baseURL string
	client  *httpclient.SaferClient
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// Option configures a Nominatim geocoder
type Option func(*options)

type options struct {
	userAgent    string
	perSecond    float64
	timeout      time.Duration
	allowPrivate bool
	logger       *zap.SugaredLogger
}

// WithUserAgent identifies this deployment to the geocoding service
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithRate limits requests per second. Zero or less removes the limit.
func WithRate(perSecond float64) Option {
	return func(o *options) { o.perSecond = perSecond }
}

// WithTimeout bounds a single request
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithPrivateNetwork allows a geocoder hosted on the local network.
func WithPrivateNetwork() Option {
	return func(o *options) { o.allowPrivate = true }
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// NewNominatim creates a geocoder for the service at baseURL, for example
// https://nominatim.openstreetmap.org.
func NewNominatim(baseURL string, opts ...Option) (*Nominatim, error) {
	o := options{
		userAgent: DefaultUserAgent,
		perSecond: DefaultRequestsPerSecond,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop().Sugar()
	}

	clientOpts := []httpclient.Option{httpclient.WithUserAgent(o.userAgent)}
	if o.allowPrivate {
		clientOpts = append(clientOpts, httpclient.AllowPrivateNetworks())
	}
	client := httpclient.NewSaferClient(o.timeout, clientOpts...)

	base := strings.TrimRight(baseURL, "/")
	if _, err := client.ValidateURL(base); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "invalid geocoder url %q", baseURL),
			"set geocode.allow_private = true for a geocoder on the local network")
	}

	limit := rate.Inf
	if o.perSecond > 0 {
		limit = rate.Limit(o.perSecond)
	}
	return &Nominatim{
		baseURL: base,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  o.logger.Named("geocode"),
	}, nil
}

// reverseResponse is the subset of the jsonv2 reverse response used here
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Hamlet      string `json:"hamlet"`
		State       string `json:"state"`
	} `json:"address"`
}

// ReverseGeocode resolves lat/lon to a street address with city and state.
func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lon float64) (ingest.Location, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return ingest.Location{}, errors.Wrap(err, "geocoder rate limit")
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var resp reverseResponse
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse?"+q.Encode(), &resp); err != nil {
		return ingest.Location{}, errors.Wrap(err, "reverse geocode")
	}
	if resp.Error != "" {
		return ingest.Location{}, errors.NewNotFoundError("no address at %g,%g: %s", lat, lon, resp.Error)
	}

	loc := ingest.Location{
		Address: strings.TrimSpace(resp.Address.HouseNumber + " " + resp.Address.Road),
		City:    firstNonEmpty(resp.Address.City, resp.Address.Town, resp.Address.Village, resp.Address.Hamlet),
		State:   resp.Address.State,
	}
	if loc.Address == "" {
		loc.Address = resp.DisplayName
	}
	if loc.Address == "" {
		return ingest.Location{}, errors.NewNotFoundError("no address at %g,%g", lat, lon)
	}

	n.logger.Debugw("Reverse geocoded", "lat", lat, "lon", lon, "address", loc.Address)
	return loc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
