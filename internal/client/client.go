// Package client is a Go client for the prediction API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ml-api/internal/api"
	"ml-api/internal/loan"
	"ml-api/internal/predict"
)

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int                    `json:"-"`
	Code       string                 `json:"error_code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Errors returns the validation messages carried in the details, if any.
func (e *APIError) Errors() []string {
	raw, _ := e.Details["errors"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: strings.TrimSuffix(base, "/"), rest: r}
}

// Health calls GET /health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// PredictIris classifies Iris samples of four measurements each.
func (c *Client) PredictIris(ctx context.Context, data [][]float64) (predict.Response, error) {
	var out predict.Response
	err := c.do(ctx, http.MethodPost, "/iris/predict", api.IrisRequest{Data: data}, &out)
	return out, err
}

// PredictLoan scores one loan application.
func (c *Client) PredictLoan(ctx context.Context, app loan.Payload) (predict.Response, error) {
	var out predict.Response
	err := c.do(ctx, http.MethodPost, "/loan/predict", app, &out)
	return out, err
}

// PredictLoanBatch scores applications in one all-or-nothing request.
func (c *Client) PredictLoanBatch(ctx context.Context, apps []loan.Payload) (predict.Response, error) {
	if apps == nil {
		apps = []loan.Payload{}
	}
	var out predict.Response
	err := c.do(ctx, http.MethodPost, "/loan/predict/batch", loan.BatchPayload{Applications: apps}, &out)
	return out, err
}

// ModelInfo returns metadata about the served models.
func (c *Client) ModelInfo(ctx context.Context) (api.ModelInfoResponse, error) {
	var out api.ModelInfoResponse
	err := c.do(ctx, http.MethodGet, "/model/info", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	apiErr := &APIError{}
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode()}
	}
	return nil
}

// StreamResult is one reply on the loan stream: either a prediction or the
// error the server returned for that application.
type StreamResult struct {
	Response predict.Response
	Err      *APIError
}

// StreamLoans sends applications over one websocket connection and returns
// a reply per application, in order.
func (c *Client) StreamLoans(ctx context.Context, apps []loan.Payload) ([]StreamResult, error) {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/loan/predict/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	results := make([]StreamResult, 0, len(apps))
	for i, app := range apps {
		if err := conn.WriteJSON(app); err != nil {
			return results, fmt.Errorf("send application %d: %w", i, err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return results, fmt.Errorf("read reply %d: %w", i, err)
		}
		res, err := decodeStreamReply(msg)
		if err != nil {
			return results, fmt.Errorf("decode reply %d: %w", i, err)
		}
		results = append(results, res)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return results, nil
}

func decodeStreamReply(msg []byte) (StreamResult, error) {
	var probe struct {
		Code string `json:"error_code"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		return StreamResult{}, err
	}
	if probe.Code != "" {
		apiErr := &APIError{}
		if err := json.Unmarshal(msg, apiErr); err != nil {
			return StreamResult{}, err
		}
		return StreamResult{Err: apiErr}, nil
	}
	var resp predict.Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return StreamResult{}, err
	}
	return StreamResult{Response: resp}, nil
}
