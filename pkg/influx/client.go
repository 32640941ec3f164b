// Package influx provides the store adapter for InfluxDB 2.x.
//
// It translates the record service's Append/FindByKey/ListWindow/Purge
// contract into the InfluxDB v2 HTTP API: line protocol writes against
// /api/v2/write, Flux queries (annotated CSV responses) against
// /api/v2/query, and predicate deletes against /api/v2/delete.
//
// The adapter is intentionally thin. It performs no retries, does not
// wait for deletes to be applied, and does not try to hide the store's
// eventual consistency: a point written through Append may not be
// visible to an immediately following FindByKey.
package influx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/athenakad/crud-service-update/pkg/records"
)

// DefaultMeasurement is the measurement record points are written under
// when none is configured.
const DefaultMeasurement = "measurement"

// purgeStart is the lower bound of every Purge. Deletes always span the
// store's full history so historical overwrites are removed too, not
// just the points a recent-range query would see.
const purgeStart = "1970-01-01T00:00:00Z"

// Client talks to one InfluxDB 2.x instance. The zero value is not
// usable; BaseURL, Token, Org and Bucket must be set.
type Client struct {
	// BaseURL is the base URL of the InfluxDB instance, e.g. http://influxdb:8086.
	BaseURL string
	// Token is the API token sent as `Authorization: Token <token>`.
	Token string
	// Org is the organization name or ID.
	Org string
	// Bucket is the target bucket.
	Bucket string
	// Measurement is the measurement points are tagged under
	// (defaults to DefaultMeasurement).
	Measurement string
	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client
}

var _ records.Store = (*Client)(nil)

func (c *Client) measurement() string {
	if c.Measurement == "" {
		return DefaultMeasurement
	}
	return c.Measurement
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) validate() error {
	if c.BaseURL == "" || c.Token == "" || c.Org == "" || c.Bucket == "" {
		return errors.New("influx: BaseURL, Token, Org and Bucket are required")
	}
	return nil
}

// endpoint builds BaseURL+path with the given query parameters.
func (c *Client) endpoint(path string, params map[string]string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid BaseURL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// apiError drains the response body into an error. InfluxDB reports
// failures as JSON `{"code":..., "message":...}`; fall back to the raw
// body when it doesn't.
func apiError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return fmt.Errorf("influx: %s: status %d: %s", op, resp.StatusCode, body.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Errorf("influx: %s: status %d: %s", op, resp.StatusCode, msg)
	}
	return fmt.Errorf("influx: %s: status %d", op, resp.StatusCode)
}

// Append writes one point `<measurement>,id=<key> value=<value>` with a
// nanosecond timestamp taken at call time. Returns that timestamp.
func (c *Client) Append(ctx context.Context, key string, value float64) (time.Time, error) {
	if err := c.validate(); err != nil {
		return time.Time{}, err
	}

	endpoint, err := c.endpoint("/api/v2/write", map[string]string{
		"org":       c.Org,
		"bucket":    c.Bucket,
		"precision": "ns",
	})
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now().UTC()
	line := fmt.Sprintf("%s,id=%s value=%s %d",
		escapeTag(c.measurement()),
		escapeTag(key),
		strconv.FormatFloat(value, 'f', -1, 64),
		now.UnixNano(),
	)

	resp, err := c.do(ctx, http.MethodPost, endpoint, "text/plain; charset=utf-8", strings.NewReader(line))
	if err != nil {
		return time.Time{}, fmt.Errorf("influx: write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return time.Time{}, apiError("write", resp)
	}
	return now, nil
}

// FindByKey runs a limit-1 Flux probe for key over the trailing window.
// Presence only; the matched point itself is discarded.
func (c *Client) FindByKey(ctx context.Context, key string, window time.Duration) (bool, error) {
	flux := fmt.Sprintf(
		`from(bucket:"%s") |> range(start: -%ds) |> filter(fn: (r) => r._measurement == "%s" and r.id == "%s") |> limit(n:1)`,
		escapeString(c.Bucket), int(window.Seconds()), escapeString(c.measurement()), escapeString(key),
	)

	points, err := c.query(ctx, flux)
	if err != nil {
		return false, err
	}
	return len(points) > 0, nil
}

// ListWindow returns every point in the trailing window, one entry per
// raw write. Rows without an id tag are skipped.
func (c *Client) ListWindow(ctx context.Context, window time.Duration) ([]records.Point, error) {
	flux := fmt.Sprintf(
		`from(bucket:"%s") |> range(start: -%ds) |> filter(fn: (r) => r._measurement == "%s")`,
		escapeString(c.Bucket), int(window.Seconds()), escapeString(c.measurement()),
	)
	return c.query(ctx, flux)
}

// Purge issues a predicate delete for key spanning the store's full
// history up to now. InfluxDB applies deletes eventually; Purge does
// not wait for or verify completion.
func (c *Client) Purge(ctx context.Context, key string) error {
	if err := c.validate(); err != nil {
		return err
	}

	endpoint, err := c.endpoint("/api/v2/delete", map[string]string{
		"org":    c.Org,
		"bucket": c.Bucket,
	})
	if err != nil {
		return err
	}

	payload := struct {
		Start     string `json:"start"`
		Stop      string `json:"stop"`
		Predicate string `json:"predicate"`
	}{
		// Full nanosecond precision. Points carry ns timestamps, so a
		// second-truncated stop would exclude a point written in the
		// same second as the delete.
		Start:     purgeStart,
		Stop:      time.Now().UTC().Format(time.RFC3339Nano),
		Predicate: fmt.Sprintf(`_measurement="%s" AND id="%s"`, escapeString(c.measurement()), escapeString(key)),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("influx: encode delete: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("influx: delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError("delete", resp)
	}
	return nil
}

// query runs a Flux expression and parses the annotated CSV response.
func (c *Client) query(ctx context.Context, flux string) ([]records.Point, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	endpoint, err := c.endpoint("/api/v2/query", map[string]string{"org": c.Org})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(flux))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.Token)
	req.Header.Set("Content-Type", "application/vnd.flux")
	req.Header.Set("Accept", "application/csv")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("influx: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("query", resp)
	}

	points, err := parseAnnotatedCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("influx: decode query response: %w", err)
	}
	return points, nil
}

// escapeTag escapes the characters line protocol reserves in
// measurement names and tag values.
var tagEscaper = strings.NewReplacer(`,`, `\,`, ` `, `\ `, `=`, `\=`)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}

// escapeString escapes a value for use inside a double-quoted Flux or
// delete-predicate string literal. Only backslash and double quote are
// defined escapes there, so Go's %q (which emits \x and \u forms) is
// not a safe substitute.
var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeString(s string) string {
	return stringEscaper.Replace(s)
}
