// Command test_integration drives a running server through the restaurant
// scenario and checks that the third answer is flagged as a contradiction.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func baseURL() string {
	if v := os.Getenv("INQUEST_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8058"
}

type submitResponse struct {
	SessionID          string   `json:"sessionId"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
	GraphReference     string   `json:"graphReference"`
	Analysis           string   `json:"analysis"`
	Findings           []struct {
		Kind string `json:"kind"`
	} `json:"findings"`
}

func main() {
	fmt.Println("Starting Integration Test...")
	sessionID := fmt.Sprintf("smoke-%d", time.Now().Unix())

	steps := []struct{ question, answer string }{
		{"Where were you Friday night?", "I was at a restaurant with Mike."},
		{"What time did you meet Mike?", "Around 6 PM on Friday."},
		{"Can you confirm the meeting time?", "It was Saturday at 8 PM."},
	}

	var last submitResponse
	for i, s := range steps {
		fmt.Printf("%d. Submitting: %s\n", i+1, s.question)
		payload := map[string]string{
			"session_id": sessionID,
			"question":   s.question,
			"answer":     s.answer,
		}
		if err := sendRequest(http.MethodPost, "/investigation/submit-qa", payload, &last); err != nil {
			fail("submit-qa", err)
		}
		fmt.Printf("   suggested: %q\n", last.SuggestedQuestions)
	}

	conflict := false
	for _, f := range last.Findings {
		conflict = conflict || f.Kind == "conflict"
	}
	if !conflict {
		fail("conflict detection", fmt.Errorf("third answer was not flagged"))
	}
	fmt.Println("PASSED: Conflict detected")

	var snap struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	if err := sendRequest(http.MethodGet, "/graph/data?session_id="+sessionID, nil, &snap); err != nil {
		fail("graph data", err)
	}
	if len(snap.Nodes) == 0 {
		fail("graph data", fmt.Errorf("empty graph"))
	}
	fmt.Printf("PASSED: Graph has %d nodes\n", len(snap.Nodes))

	if err := sendRequest(http.MethodGet, "/graph/entity?session_id="+sessionID+"&name=Mike", nil, &snap); err != nil {
		fail("entity graph", err)
	}
	fmt.Printf("PASSED: Mike's neighbourhood has %d nodes\n", len(snap.Nodes))

	since := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if err := sendRequest(http.MethodGet, "/graph/changes?session_id="+sessionID+"&since="+since, nil, &snap); err != nil {
		fail("graph changes", err)
	}
	fmt.Printf("PASSED: %d entities changed in the last hour\n", len(snap.Nodes))
}

func fail(step string, err error) {
	fmt.Printf("FAILED: %s: %v\n", step, err)
	os.Exit(1)
}

func sendRequest(method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
