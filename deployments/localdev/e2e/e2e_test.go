package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// Smoke tests against a running server. Skipped unless E2E_BASE_URL is set,
// e.g. E2E_BASE_URL=http://localhost:8080 go test ./deployments/localdev/e2e/
func baseURL(t *testing.T) string {
	t.Helper()
	v := os.Getenv("E2E_BASE_URL")
	if v == "" {
		t.Skip("E2E_BASE_URL not set")
	}
	return v
}

func TestHealthAndOpenAPI(t *testing.T) {
	b := baseURL(t)
	for _, path := range []string{"/health", "/ready", "/api/openapi", "/api/openapi.yaml", "/metrics"} {
		resp, err := http.Get(b + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestPowerloadComputeRoundTrip(t *testing.T) {
	b := baseURL(t)

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	points := make([]map[string]any, 25)
	for i := range points {
		points[i] = map[string]any{
			"time":    start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			"load_kw": 60.0,
		}
	}
	body, _ := json.Marshal(map[string]any{"name": "e2e load", "points": points})

	resp, err := http.Post(b+"/api/v1/powerloads", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create powerload: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("create powerload status=%d", resp.StatusCode)
	}
	var created struct {
		Powerload struct {
			ID string `json:"id"`
		} `json:"powerload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode powerload: %v", err)
	}
	resp.Body.Close()

	// Window validation corrects an out-of-range selection.
	validate, _ := json.Marshal(map[string]string{
		"startdatetime": "03/09/2025 00:00",
		"enddatetime":   "03/11/2025 00:00",
	})
	resp, err = http.Post(
		fmt.Sprintf("%s/api/v1/powerloads/%s/window/validate", b, created.Powerload.ID),
		"application/json", bytes.NewReader(validate))
	if err != nil {
		t.Fatalf("validate window: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("validate window status=%d", resp.StatusCode)
	}
	var corrected struct {
		Start       string            `json:"startdatetime"`
		Corrections []json.RawMessage `json:"corrections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&corrected); err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	resp.Body.Close()
	if corrected.Start != "03/10/2025 00:00" {
		t.Fatalf("corrected start=%q", corrected.Start)
	}
	if len(corrected.Corrections) == 0 {
		t.Fatal("expected at least one correction")
	}

	// Run-and-wait compute, then poll the status route once.
	submit, _ := json.Marshal(map[string]any{
		"powerloadId":   created.Powerload.ID,
		"startdatetime": "03/10/2025 00:00",
		"enddatetime":   "03/11/2025 00:00",
		"wait":          true,
	})
	resp, err = http.Post(b+"/api/v1/simulate/compute", "application/json", bytes.NewReader(submit))
	if err != nil {
		t.Fatalf("submit compute: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("submit compute status=%d", resp.StatusCode)
	}
	var submitted struct {
		Data struct {
			ComputeID string `json:"compute_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(b + "/api/v1/compute/status/" + submitted.Data.ComputeID)
	if err != nil {
		t.Fatalf("poll status: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("poll status=%d", resp.StatusCode)
	}
	var status struct {
		Success *bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	resp.Body.Close()
	if status.Success == nil || !*status.Success {
		t.Fatalf("expected success=true, got %v", status.Success)
	}
}
