// Package client provides the Go SDK for the Land Truth Registry HTTP API:
// registering assets, appending versions, logging evidence, and reading
// timelines.
package client

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
)

// ErrNotFound is returned when the referenced asset or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the supplied expected sequence was stale or the
// asset is voided. Re-read the asset and retry with the current sequence.
var ErrConflict = errors.New("sequence conflict")

// ErrDuplicateAsset is returned when the asset id is already registered.
var ErrDuplicateAsset = errors.New("asset id already exists")

// APIError carries a non-2xx response that does not map to a sentinel above.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.Status, e.Message)
}

// Payload is the versioned snapshot of an asset's state.
type Payload struct {
	Status       string  `json:"status"`
	Owner        string  `json:"owner"`
	Name         string  `json:"name"`
	LocationLat  float64 `json:"location_lat"`
	LocationLon  float64 `json:"location_lon"`
	SizeHectares float64 `json:"size_hectares"`
	ChangeReason string  `json:"change_reason"`
}

// Asset is the registry's record for one land parcel or property.
type Asset struct {
	ID              string    `json:"id"`
	CurrentSequence int       `json:"current_sequence"`
	CreatedAt       time.Time `json:"created_at"`
}

// Version is one immutable snapshot in an asset's hash-linked history.
type Version struct {
	AssetID   string    `json:"asset_id"`
	Sequence  int       `json:"sequence"`
	Payload   Payload   `json:"payload"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Evidence is an immutable proof record bound to one version of an asset.
type Evidence struct {
	ID              string    `json:"id"`
	AssetID         string    `json:"asset_id"`
	VersionSequence int       `json:"version_sequence"`
	Kind            string    `json:"kind"`
	PayloadRef      string    `json:"payload_ref"`
	Description     string    `json:"description"`
	GPSLat          *float64  `json:"gps_lat,omitempty"`
	GPSLon          *float64  `json:"gps_lon,omitempty"`
	Submitter       string    `json:"submitter"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// TimelineEvent is one entry in the merged chronological view of an asset's
// versions and evidence. Type is "version" or "evidence".
type TimelineEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Version events.
	Sequence *int     `json:"sequence,omitempty"`
	Payload  *Payload `json:"payload,omitempty"`

	// Evidence events.
	EvidenceID      string `json:"evidence_id,omitempty"`
	VersionSequence *int   `json:"version_sequence,omitempty"`
	Kind            string `json:"kind,omitempty"`
	Description     string `json:"description,omitempty"`
}

// LogEvidenceRequest is the payload for binding evidence to a version.
type LogEvidenceRequest struct {
	AssetID         string   `json:"asset_id"`
	VersionSequence *int     `json:"version_sequence"`
	Kind            string   `json:"kind"`
	PayloadRef      string   `json:"payload_ref"`
	Description     string   `json:"description,omitempty"`
	GPSLat          *float64 `json:"gps_lat,omitempty"`
	GPSLon          *float64 `json:"gps_lon,omitempty"`
	Submitter       string   `json:"submitter"`
}

// Client is the registry SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client for the registry at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateAssetResult is the response of CreateAsset.
type CreateAssetResult struct {
	Asset   Asset   `json:"asset"`
	Genesis Version `json:"genesis"`
}

// CreateAsset registers a new asset with its genesis payload.
func (c *Client) CreateAsset(ctx context.Context, assetID string, payload Payload) (*CreateAssetResult, error) {
	body := struct {
		AssetID string  `json:"asset_id"`
		Payload Payload `json:"payload"`
	}{assetID, payload}

	var out CreateAssetResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/assets", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAsset fetches one asset record.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	var out Asset
	if err := c.do(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(assetID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssets returns a page of registered assets.
func (c *Client) ListAssets(ctx context.Context, limit, offset int) ([]Asset, error) {
	path := fmt.Sprintf("/api/v1/assets?limit=%d&offset=%d", limit, offset)
	var out struct {
		Assets []Asset `json:"assets"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Assets, nil
}

// AppendVersion appends a version on top of expectedSequence.
func (c *Client) AppendVersion(ctx context.Context, assetID string, expectedSequence int, payload Payload) (*Version, error) {
	body := struct {
		ExpectedSequence int     `json:"expected_sequence"`
		Payload          Payload `json:"payload"`
	}{expectedSequence, payload}

	var out Version
	if err := c.do(ctx, http.MethodPost, "/api/v1/assets/"+url.PathEscape(assetID)+"/versions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVersions returns an asset's full version history ordered by sequence.
func (c *Client) ListVersions(ctx context.Context, assetID string) ([]Version, error) {
	var out struct {
		Versions []Version `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(assetID)+"/versions", nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// VerifyResult reports chain integrity for one asset.
type VerifyResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// VerifyAsset asks the registry to walk the asset's hash chain.
func (c *Client) VerifyAsset(ctx context.Context, assetID string) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(assetID)+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTimeline returns the merged chronological view of versions and evidence.
func (c *Client) GetTimeline(ctx context.Context, assetID string) ([]TimelineEvent, error) {
	var out struct {
		Events []TimelineEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(assetID)+"/timeline", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// LogEvidence binds a new evidence record to an existing version.
func (c *Client) LogEvidence(ctx context.Context, req LogEvidenceRequest) (*Evidence, error) {
	var out Evidence
	if err := c.do(ctx, http.MethodPost, "/api/v1/evidence", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvidence returns evidence for an asset, optionally filtered to one sequence.
func (c *Client) ListEvidence(ctx context.Context, assetID string, sequence *int) ([]Evidence, error) {
	path := "/api/v1/evidence?asset_id=" + url.QueryEscape(assetID)
	if sequence != nil {
		path += "&sequence=" + strconv.Itoa(*sequence)
	}
	var out struct {
		Evidence []Evidence `json:"evidence"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Evidence, nil
}

// do performs one JSON round-trip and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(data, &apiErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		if strings.Contains(apiErr.Error, "exists") {
			return ErrDuplicateAsset
		}
		return ErrConflict
	}
	return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
}
