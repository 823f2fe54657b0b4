package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stemsi/edutest/internal/model"
)

func testPath(testID string, suffix string) string {
	return "/tests/" + url.PathEscape(testID) + suffix
}

// GetTest fetches one test definition.
func (c *Client) GetTest(ctx context.Context, testID string) (*model.TestDefinition, error) {
	var def model.TestDefinition
	if err := c.do(ctx, http.MethodGet, testPath(testID, ""), nil, &def); err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	return &def, nil
}

type startRequest struct {
	Password string `json:"password,omitempty"`
}

type startResponse struct {
	Message    string               `json:"message"`
	Submission model.StartedAttempt `json:"submission"`
}

// StartTest opens a server-side attempt.
func (c *Client) StartTest(ctx context.Context, testID, password string) (*model.StartedAttempt, error) {
	var resp startResponse
	err := c.do(ctx, http.MethodPost, testPath(testID, "/start"), startRequest{Password: password}, &resp)
	if err != nil {
		return nil, fmt.Errorf("start test: %w", classifyStart(err))
	}
	return &resp.Submission, nil
}

type submitRequest struct {
	Answers []model.SubmitAnswer `json:"answers"`
}

type submitResponse struct {
	Message string                 `json:"message"`
	Result  model.SubmissionResult `json:"result"`
}

// SubmitTest sends the full answer list for grading.
func (c *Client) SubmitTest(ctx context.Context, testID string, answers []model.SubmitAnswer) (*model.SubmissionResult, error) {
	var resp submitResponse
	err := c.do(ctx, http.MethodPost, testPath(testID, "/submit"), submitRequest{Answers: answers}, &resp)
	if err != nil {
		return nil, fmt.Errorf("submit test: %w", classifySubmit(err))
	}
	return &resp.Result, nil
}

// GetTestResults lists stored submissions for a test.
func (c *Client) GetTestResults(ctx context.Context, testID string) (*model.TestResults, error) {
	var res model.TestResults
	if err := c.do(ctx, http.MethodGet, testPath(testID, "/results"), nil, &res); err != nil {
		return nil, fmt.Errorf("get test results: %w", err)
	}
	return &res, nil
}
