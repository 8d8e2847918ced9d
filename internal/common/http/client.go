// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/models"
	"repair-recommender/pkg/registry"
)

// Client talks to a running recommendation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// apiError mirrors the error body the API answers with.
type apiError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
	Retryable bool                   `json:"retryable"`
}

// Recommend posts criteria to /v1/recommendations.
func (c *Client) Recommend(ctx context.Context, criteria models.RecommendationCriteria) (*models.RecommendationResult, error) {
	body, err := json.Marshal(criteria)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recommendations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result models.RecommendationResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ProblemTypes fetches the registry served by /v1/problem-types.
func (c *Client) ProblemTypes(ctx context.Context) ([]registry.ProblemType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/problem-types", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		ProblemTypes []registry.ProblemType `json:"problemTypes"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.ProblemTypes, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalServiceError("recommendation-api", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperrors.NewExternalServiceError("recommendation-api", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Code == "" {
			return apperrors.NewExternalServiceError("recommendation-api",
				fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		details := apiErr.Message
		if len(apiErr.Details) > 0 {
			d, _ := json.Marshal(apiErr.Details)
			details = fmt.Sprintf("%s: %s", apiErr.Message, d)
		}
		return &apperrors.StandardError{
			Code:      apperrors.ErrorCode(apiErr.Code),
			Message:   apiErr.Message,
			Details:   details,
			Retryable: apiErr.Retryable,
			Timestamp: time.Now(),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
