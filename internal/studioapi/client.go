// Package studioapi is the HTTP client for the external studio
// schedule and booking services.
package studioapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"storio/internal/availability"
)

// Client calls the studio-schedule and booking-creation services.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching of schedule fetches.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles schedule fetches so a fast-tapping user does
// not hammer the schedule service.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 || burst <= 0 {
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// slotDTO is the wire form of a schedule slot.
type slotDTO struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"` // ISO-8601
	EndTime   string `json:"endTime"`   // ISO-8601
	Status    string `json:"status"`    // free | booked
}

// scheduleResponse is the wire form of GET /api/v1/studios/{id}/schedule.
type scheduleResponse struct {
	StudioID int64                `json:"studio_id"`
	Days     map[string][]slotDTO `json:"days"` // keyed by YYYY-MM-DD
}

// GetSchedule fetches the studio's schedule snapshot for an inclusive
// date-key window. The snapshot is read-only once returned.
func (c *Client) GetSchedule(ctx context.Context, studioID int64, fromKey, toKey string) (*availability.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/studios/%d/schedule?from=%s&to=%s",
		c.baseURL, studioID, url.QueryEscape(fromKey), url.QueryEscape(toKey))
	cacheKey := fmt.Sprintf("schedule:%d:%s:%s", studioID, fromKey, toKey)

	var resp scheduleResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return toSnapshot(studioID, resp), nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return toSnapshot(studioID, resp), nil
}

func toSnapshot(studioID int64, resp scheduleResponse) *availability.Snapshot {
	snap := &availability.Snapshot{
		StudioID: studioID,
		Days:     make(map[string][]availability.Slot, len(resp.Days)),
	}
	for key, slots := range resp.Days {
		day := make([]availability.Slot, 0, len(slots))
		for _, s := range slots {
			day = append(day, availability.Slot{
				ID:        s.ID,
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
				Status:    availability.SlotStatus(s.Status),
			})
		}
		snap.Days[key] = day
	}
	return snap
}

// LineItem is an extra equipment or service charge attached to a
// booking; priced by the billing service, not here.
type LineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// SubmitRequest is the booking-creation payload.
type SubmitRequest struct {
	StudioID  int64      `json:"studio_id"`
	StartTime string     `json:"start_time"` // ISO-8601
	EndTime   string     `json:"end_time"`   // ISO-8601
	LineItems []LineItem `json:"line_items,omitempty"`
}

// SubmitResponse is the booking-creation result.
type SubmitResponse struct {
	Success   bool   `json:"success"`
	BookingID int64  `json:"booking_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitBooking forwards the derived booking interval to the
// booking-creation service. A fresh UUID request ID makes retries
// idempotent server-side.
func (c *Client) SubmitBooking(ctx context.Context, req SubmitRequest) (*SubmitResponse, string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings", c.baseURL)
	requestID := uuid.NewString()

	var resp SubmitResponse
	if err := c.doPost(ctx, endpoint, requestID, req, &resp); err != nil {
		return nil, requestID, err
	}
	return &resp, requestID, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req, "")
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint, requestID string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req, requestID)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *Client) addHeaders(req *http.Request, requestID string) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if requestID != "" {
		req.Header.Set("x-request-id", requestID)
	}
}

// HealthCheck checks if the studio API is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}
