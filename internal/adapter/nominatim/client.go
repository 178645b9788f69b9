// internal/adapter/nominatim/client.go

package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/metrics"
)

// Config contains configuration for the Nominatim client
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MinInterval is the minimum spacing between outbound requests
	MinInterval time.Duration
}

// Client implements geo.Geocoder against the Nominatim API
type Client struct {
	http    *http.Client
	config  Config
	limiter *rate.Limiter
}

// NewClient creates a new Nominatim client. A nil httpClient gets a client
// with the configured timeout.
func NewClient(httpClient *http.Client, config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	limit := rate.Inf
	if config.MinInterval > 0 {
		limit = rate.Every(config.MinInterval)
	}

	return &Client{
		http:    httpClient,
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type reverseResult struct {
	Address geo.Address `json:"address"`
}

// Search returns matches for free text, best match first
func (c *Client) Search(ctx context.Context, query string) ([]geo.Coordinates, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "search", q, &results); err != nil {
		return nil, err
	}

	coords := make([]geo.Coordinates, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
		}
		lng, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
		}
		coords = append(coords, geo.Coordinates{Lat: lat, Lng: lng})
	}

	return coords, nil
}

// Reverse returns the address at a point
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*geo.Address, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "14")
	q.Set("addressdetails", "1")

	var result reverseResult
	if err := c.get(ctx, "reverse", q, &result); err != nil {
		return nil, err
	}

	return &result.Address, nil
}

func (c *Client) get(ctx context.Context, op string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s/%s?%s", c.config.BaseURL, op, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	log := logger.L().WithField("op", op)
	start := time.Now()
	metrics.GeocoderRequestsTotal.WithLabelValues(op).Inc()
	defer func() {
		metrics.GeocoderDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("geocoder_http_error")
		metrics.GeocoderFailTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("%w: %v", geo.ErrGeocodingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Warn("geocoder_bad_status")
		metrics.GeocoderFailTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("%w: status %d", geo.ErrGeocodingUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.WithError(err).Error("geocoder_decode_error")
		metrics.GeocoderFailTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("error decoding %s response: %w", op, err)
	}

	log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("geocoder_resp")

	return nil
}
