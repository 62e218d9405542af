// Package railapi implements provider.AvailabilityProvider against the rail
// operator's JSON timetable endpoint.
//
// The endpoint takes API-key auth in the Authorization header and is rate
// limited, so every request waits on a token bucket first.
package railapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/seatwatch/internal/provider"
	"github.com/albapepper/seatwatch/internal/watch"
)

// highSpeedTypes are train types treated as high speed when the endpoint
// does not flag them itself.
var highSpeedTypes = map[string]bool{
	"KTX":          true,
	"KTX-SANCHEON": true,
	"KTX-EUM":      true,
	"SRT":          true,
}

// Client is the HTTP adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a rate-limited client. timeout bounds each request.
func NewClient(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// searchResponse is the timetable payload.
type searchResponse struct {
	Trains []struct {
		TrainNumber string         `json:"train_no"`
		TrainType   string         `json:"train_type"`
		HighSpeed   *bool          `json:"high_speed"`
		Departure   string         `json:"dep_time"`
		Arrival     string         `json:"arr_time"`
		Seats       map[string]int `json:"seats"`
	} `json:"trains"`
}

// Search queries the timetable and returns trains departing inside the
// window, restricted to high-speed services when asked.
func (c *Client) Search(ctx context.Context, q provider.Query) ([]provider.Train, error) {
	params := url.Values{}
	params.Set("dep", q.FromStationID)
	params.Set("arr", q.ToStationID)
	params.Set("date", strings.ReplaceAll(q.Date, "-", ""))
	params.Set("time_from", strings.ReplaceAll(q.Window.Start, ":", ""))
	params.Set("time_to", strings.ReplaceAll(q.Window.End, ":", ""))
	params.Set("cabin", strings.ToLower(string(q.CabinClass)))
	params.Set("high_speed", strconv.FormatBool(q.HighSpeedOnly))

	var resp searchResponse
	if err := c.get(ctx, "/v1/trains", params, &resp); err != nil {
		return nil, err
	}

	trains := make([]provider.Train, 0, len(resp.Trains))
	for _, t := range resp.Trains {
		train := provider.Train{
			TrainNumber:   t.TrainNumber,
			TrainType:     t.TrainType,
			DepartureTime: normalizeClock(t.Departure),
			ArrivalTime:   normalizeClock(t.Arrival),
			Seats:         make(map[watch.CabinClass]int, len(t.Seats)),
		}
		if t.HighSpeed != nil {
			train.HighSpeed = *t.HighSpeed
		} else {
			train.HighSpeed = highSpeedTypes[strings.ToUpper(t.TrainType)]
		}
		for cabin, n := range t.Seats {
			train.Seats[watch.CabinClass(strings.ToUpper(cabin))] = n
		}

		if !q.Window.Contains(train.DepartureTime) {
			continue
		}
		if q.HighSpeedOnly && !train.HighSpeed {
			continue
		}
		trains = append(trains, train)
	}

	c.logger.Debug("Rail search", "query", q.String(), "returned", len(resp.Trains), "kept", len(trains))
	return trains, nil
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rail api %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeClock turns "0830" or "08:30:00" into "08:30".
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && !strings.Contains(s, ":") {
		return s[:2] + ":" + s[2:]
	}
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
