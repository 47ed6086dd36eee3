package ecosortsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal ecosort HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BearerToken: token,
		Timeout:     10 * time.Second,
	}
}

type CollectResult struct {
	WasteID       string `json:"waste_id"`
	UserID        string `json:"user_id"`
	HistoryID     string `json:"history_id"`
	PointsAwarded int64  `json:"points_awarded"`
	NewBalance    int64  `json:"new_balance"`
}

type RedeemResult struct {
	RedemptionID string `json:"redemption_id"`
	UserID       string `json:"user_id"`
	AwardID      string `json:"award_id"`
	AwardName    string `json:"award_name"`
	Cost         int64  `json:"cost"`
	NewBalance   int64  `json:"new_balance"`
	BarcodeID    string `json:"barcode_id,omitempty"`
}

type RankEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Points   int64  `json:"points"`
}

// HistoryEntry is one collection (positive Delta) or redemption (negative
// Delta).
type HistoryEntry struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	At     string `json:"at"`
	Delta  int64  `json:"delta"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the server aborted the transaction and nothing
// was written.
func (e *APIError) Retryable() bool {
	return e.Code == "transaction_aborted"
}

// Collect credits the caller with the points of a waste item.
func (c *Client) Collect(ctx context.Context, wasteID string) (CollectResult, error) {
	var resp CollectResult
	err := c.do(ctx, http.MethodPost, "award/collect", map[string]any{"waste_id": wasteID}, &resp)
	return resp, err
}

// Redeem spends the caller's points on an award. barcode may be empty.
func (c *Client) Redeem(ctx context.Context, awardID, barcode string) (RedeemResult, error) {
	body := map[string]any{"award_id": awardID}
	if barcode != "" {
		body["barcode_id"] = barcode
	}
	var resp RedeemResult
	err := c.do(ctx, http.MethodPost, "award/redeem", body, &resp)
	return resp, err
}

// Rank returns the leaderboard. An empty month ranks all-time balances.
func (c *Client) Rank(ctx context.Context, month string) ([]RankEntry, error) {
	endpoint := "award/users"
	if month != "" {
		endpoint += "?month=" + url.QueryEscape(month)
	}
	var resp struct {
		Items []RankEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// History returns ledger entries newest first. An empty userID lists the
// caller's entries, or every account's for roles that open the redeem page.
func (c *Client) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint := "history"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []HistoryEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/api/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
