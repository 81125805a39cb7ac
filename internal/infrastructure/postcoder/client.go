// Package postcoder reverse-geocodes coordinates to UK postcodes via the
// postcodes.io API.
package postcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"transit_enrichment/internal/retry"
)

// Client queries the reverse-geocode endpoint. A well-formed response with no
// candidate postcodes is a definitive miss, not an error.
type Client struct {
	baseURL string
	http    *http.Client
	radiusM int
	retry   retry.Policy
}

func New(baseURL string, radiusM int, policy retry.Policy) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		radiusM: radiusM,
		retry:   policy,
	}
}

type reverseGeocodeResponse struct {
	Status int `json:"status"`
	Result []struct {
		Postcode string `json:"postcode"`
	} `json:"result"`
}

// ReverseGeocode returns the nearest postcode within the configured radius,
// or (nil, nil) when the API confirms no postcode exists there. Transport
// failures and malformed responses are retried per the policy.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(c.radiusM))
	params.Set("limit", "1")
	endpoint := c.baseURL + "?" + params.Encode()

	var postcode *string
	err := c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent{Err: fmt.Errorf("failed to build request: %w", err)}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var body reverseGeocodeResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if body.Status != http.StatusOK {
			return fmt.Errorf("api status %d", body.Status)
		}

		if len(body.Result) == 0 {
			postcode = nil
			return nil
		}
		postcode = &body.Result[0].Postcode
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reverse geocode (%f, %f): %w", lat, lon, err)
	}
	return postcode, nil
}
