package vindecode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bigsauer/rp-exotics-platform/pkg/metrics"
	"github.com/bigsauer/rp-exotics-platform/pkg/validator"
)

const (
	// DefaultBaseURL is the public NHTSA vPIC endpoint.
	DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api"

	defaultTimeout = 10 * time.Second
	maxRetries     = 2
	retryBackoff   = 500 * time.Millisecond
)

var (
	// ErrInvalidVIN is returned before any upstream call when the VIN fails
	// the 17-character format check.
	ErrInvalidVIN = errors.New("vindecode: invalid vin")
	// ErrUpstreamUnavailable is returned when the decode service cannot be
	// reached or keeps failing after retries.
	ErrUpstreamUnavailable = errors.New("vindecode: upstream unavailable")
)

// Result holds the decoded vehicle attributes. Fields the upstream reports as
// unknown stay nil/empty.
type Result struct {
	VIN          string `json:"vin"`
	Year         *int   `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Trim         string `json:"trim"`
	BodyClass    string `json:"body_class"`
	Engine       string `json:"engine"`
	Transmission string `json:"transmission"`
	DriveType    string `json:"drive_type"`
}

// Config defines tunable behaviour for the decode client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client calls the NHTSA vPIC VIN decode API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a decode client with sane defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, http: httpClient}
}

type decodeResponse struct {
	Results []struct {
		Variable string `json:"Variable"`
		Value    string `json:"Value"`
	} `json:"Results"`
}

// Decode looks up a VIN against the upstream service. Transient upstream
// failures are retried before giving up with ErrUpstreamUnavailable.
func (c *Client) Decode(ctx context.Context, vin string) (*Result, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if !validator.IsValidVIN(vin) {
		metrics.VINDecodeRequests.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidVIN
	}

	endpoint := fmt.Sprintf("%s/vehicles/DecodeVin/%s?format=json", c.baseURL, url.PathEscape(vin))

	var result *Result
	backoff := retry.WithMaxRetries(maxRetries, retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		decoded, err := c.decodeOnce(ctx, endpoint, vin)
		if err != nil {
			return retry.RetryableError(err)
		}
		result = decoded
		return nil
	})
	if err != nil {
		metrics.VINDecodeRequests.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	metrics.VINDecodeRequests.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) decodeOnce(ctx context.Context, endpoint, vin string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("decode vin: upstream status %d", resp.StatusCode)
	}

	var payload decodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode vin: parse response: %w", err)
	}

	result := &Result{VIN: vin}
	for _, row := range payload.Results {
		value := cleanValue(row.Value)
		if value == "" {
			continue
		}
		switch row.Variable {
		case "Model Year":
			if year, err := strconv.Atoi(value); err == nil {
				result.Year = &year
			}
		case "Make":
			result.Make = value
		case "Model":
			result.Model = value
		case "Trim":
			result.Trim = value
		case "Body Class":
			result.BodyClass = value
		case "Engine Model":
			result.Engine = value
		case "Transmission Style":
			result.Transmission = value
		case "Drive Type":
			result.DriveType = value
		}
	}
	return result, nil
}

// cleanValue normalises the upstream's placeholder values to empty strings.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "Not Applicable") || strings.EqualFold(v, "null") {
		return ""
	}
	return v
}
