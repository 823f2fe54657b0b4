//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/stemsi/edutest/internal/session"
)

// The suite drives a running agent that is connected to a real education API.
// E2E_TEST_ID must name a published test the student has attempts left on.
const (
	defaultBaseURL = "http://localhost:8090/api/v1"
)

var (
	baseURL         string
	studentEmail    string
	studentPassword string
	testID          string
	testPassword    string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	studentEmail = os.Getenv("E2E_STUDENT_EMAIL")
	studentPassword = os.Getenv("E2E_STUDENT_PASSWORD")
	testID = os.Getenv("E2E_TEST_ID")
	testPassword = os.Getenv("E2E_TEST_PASSWORD")

	if studentEmail == "" || studentPassword == "" || testID == "" {
		fmt.Println("Setup failed: E2E_STUDENT_EMAIL, E2E_STUDENT_PASSWORD and E2E_TEST_ID are required")
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestE2EFlow(t *testing.T) {
	var questionIDs []string

	// Step 1: Sign in as the student
	t.Run("StudentLogin", func(t *testing.T) {
		resp, err := post("/auth/login", map[string]string{
			"email":    studentEmail,
			"password": studentPassword,
		})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 2: Open the test
	t.Run("OpenTest", func(t *testing.T) {
		resp, err := get("/tests/" + testID)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body envelope
		decodeJSON(t, resp, &body)
		var data struct {
			State session.Snapshot `json:"state"`
		}
		if err := json.Unmarshal(body.Data, &data); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if data.State.Status != session.StatusNotStarted {
			t.Fatalf("expected not-started, got %s", data.State.Status)
		}
		for _, slot := range data.State.Slots {
			questionIDs = append(questionIDs, slot.QuestionID)
		}
		t.Logf("Test has %d questions", len(questionIDs))
	})

	// Step 3: Start
	t.Run("StartTest", func(t *testing.T) {
		resp, err := post("/tests/"+testID+"/start", map[string]string{"password": testPassword})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 3b: A second start is refused (409)
	t.Run("StartAgain", func(t *testing.T) {
		resp, err := post("/tests/"+testID+"/start", map[string]string{"password": testPassword})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409 Conflict, got %d. Body: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 4: Answer all but the last question
	t.Run("SaveAnswers", func(t *testing.T) {
		for i, qid := range questionIDs {
			if i == len(questionIDs)-1 {
				break
			}
			resp, err := put(fmt.Sprintf("/tests/%s/answers/%s", testID, qid), map[string]any{"answer": "e2e"})
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("answer %s: status %d: %s", qid, resp.StatusCode, readBody(resp))
			}
			resp.Body.Close()
		}
	})

	// Step 5: Submit without confirming (expect 409 when something is unanswered)
	t.Run("SubmitUnconfirmed", func(t *testing.T) {
		if len(questionIDs) == 0 {
			t.Skip("test has no questions")
		}
		resp, err := post("/tests/"+testID+"/submit", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var body envelope
		decodeJSON(t, resp, &body)
		if resp.StatusCode != http.StatusConflict || body.Error == nil || body.Error.Code != "UNANSWERED_QUESTIONS" {
			t.Fatalf("expected 409 UNANSWERED_QUESTIONS, got %d %+v", resp.StatusCode, body.Error)
		}
	})

	// Step 6: Submit confirmed
	t.Run("SubmitConfirmed", func(t *testing.T) {
		resp, err := post("/tests/"+testID+"/submit", map[string]bool{"confirmed": true})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body envelope
		decodeJSON(t, resp, &body)
		var data struct {
			State session.Snapshot `json:"state"`
		}
		if err := json.Unmarshal(body.Data, &data); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if data.State.Status != session.StatusCompleted || data.State.Result == nil {
			t.Fatalf("expected completed with result, got %s", data.State.Status)
		}
		t.Logf("Score %.1f/%.1f grade %s", data.State.Result.Score, data.State.Result.TotalPoints, data.State.Result.Grade)
	})

	// Step 7: Results list contains the new attempt
	t.Run("Results", func(t *testing.T) {
		resp, err := get("/tests/" + testID + "/results")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Attempts []struct{} `json:"attempts"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if len(body.Data.Attempts) == 0 {
			t.Errorf("Expected at least one attempt")
		}
	})

	// Step 8: Close and sign out
	t.Run("Teardown", func(t *testing.T) {
		resp, err := do(http.MethodDelete, "/tests/"+testID, nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		resp, err = post("/auth/logout", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	})
}

// Helpers

func do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 20 * time.Second}
	return client.Do(req)
}

func post(path string, body interface{}) (*http.Response, error) {
	return do(http.MethodPost, path, body)
}

func put(path string, body interface{}) (*http.Response, error) {
	return do(http.MethodPut, path, body)
}

func get(path string) (*http.Response, error) {
	return do(http.MethodGet, path, nil)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
