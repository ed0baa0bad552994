// Package courier talks to the courier's shipment tracking API.
package courier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://track.delhivery.com"

// ErrNoShipment is returned when the courier has no record of the AWB.
var ErrNoShipment = errors.New("courier has no shipment for awb")

// Update is one observation of a shipment's state.
type Update struct {
	AWB              string
	Status           string
	Location         string
	ExpectedDelivery *time.Time
	At               time.Time
}

// APIError is a non-2xx response from the courier.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("courier api: status %d: %s", e.StatusCode, e.Message)
}

// ErrorCode lets the notification and tracking logs record the status.
func (e *APIError) ErrorCode() string { return fmt.Sprintf("http_%d", e.StatusCode) }

// Client is a tracking API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

type trackResponse struct {
	ShipmentData []struct {
		Shipment struct {
			AWB                  string `json:"AWB"`
			ExpectedDeliveryDate string `json:"ExpectedDeliveryDate"`
			Status               struct {
				Status         string `json:"Status"`
				StatusLocation string `json:"StatusLocation"`
				StatusDateTime string `json:"StatusDateTime"`
			} `json:"Status"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
	Error string `json:"Error"`
}

// Track fetches the current status for awb.
func (c *Client) Track(ctx context.Context, awb string) (Update, error) {
	endpoint := c.baseURL + "/api/v1/packages/json/?waybill=" + url.QueryEscape(awb)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Update{}, fmt.Errorf("build track request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Update{}, fmt.Errorf("track %s: %w", awb, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Update{}, fmt.Errorf("read track response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return Update{}, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var tr trackResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Update{}, fmt.Errorf("decode track response: %w", err)
	}
	if len(tr.ShipmentData) == 0 {
		if tr.Error != "" {
			return Update{}, fmt.Errorf("%w %s: %s", ErrNoShipment, awb, tr.Error)
		}
		return Update{}, fmt.Errorf("%w %s", ErrNoShipment, awb)
	}

	sh := tr.ShipmentData[0].Shipment
	u := Update{
		AWB:      awb,
		Status:   strings.TrimSpace(sh.Status.Status),
		Location: sh.Status.StatusLocation,
		At:       parseTime(sh.Status.StatusDateTime),
	}
	if t := parseTime(sh.ExpectedDeliveryDate); !t.IsZero() {
		u.ExpectedDelivery = &t
	}
	return u, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the layouts the courier is known to emit; the zero
// time means unparseable or empty.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
