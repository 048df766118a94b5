// Package main runs a smoke test against a deployed API.
//
// It checks health, submits a minimal lead, confirms an invalid lead is
// rejected, and optionally creates a checkout session (use against a
// deployment with STRIPE_DRY_RUN=true).
//
// Usage:
//
//	go run ./scripts/smoke [--api=URL] [--checkout]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

type check struct {
	name string
	run  func() error
}

var (
	flagAPI      string
	flagCheckout bool
	client       = &http.Client{Timeout: 20 * time.Second}
)

func init() {
	flag.StringVar(&flagAPI, "api", envOr("API_URL", "http://localhost:8080"), "API base URL")
	flag.BoolVar(&flagCheckout, "checkout", false, "also create a checkout session")
}

func main() {
	flag.Parse()
	base := strings.TrimRight(flagAPI, "/")
	runID := uuid.NewString()[:8]

	checks := []check{
		{"health", func() error {
			var out map[string]string
			if err := call(http.MethodGet, base+"/health", nil, http.StatusOK, &out); err != nil {
				return err
			}
			if out["status"] != "ok" {
				return fmt.Errorf("status = %q", out["status"])
			}
			return nil
		}},
		{"create lead", func() error {
			var out struct {
				Success   bool   `json:"success"`
				LeadID    string `json:"lead_id"`
				SessionID string `json:"session_id"`
			}
			payload := map[string]any{
				"contact_name": "Smoke Test " + runID,
				"email":        "smoke+" + runID + "@royscompany.com",
				"source":       "smoke_test",
				"priority":     "low",
			}
			if err := call(http.MethodPost, base+"/leads", payload, http.StatusOK, &out); err != nil {
				return err
			}
			if !out.Success || out.LeadID == "" || !strings.HasPrefix(out.SessionID, "lead_") {
				return fmt.Errorf("unexpected response %+v", out)
			}
			return nil
		}},
		{"reject invalid lead", func() error {
			var out struct {
				Error string `json:"error"`
			}
			if err := call(http.MethodPost, base+"/leads", map[string]any{"email": "nope"}, http.StatusBadRequest, &out); err != nil {
				return err
			}
			if out.Error != "Invalid input" {
				return fmt.Errorf("error = %q", out.Error)
			}
			return nil
		}},
	}
	if flagCheckout {
		checks = append(checks, check{"checkout session", func() error {
			var out struct {
				URL string `json:"url"`
			}
			if err := call(http.MethodPost, base+"/checkout", map[string]any{"packageType": "foundation"}, http.StatusOK, &out); err != nil {
				return err
			}
			if !strings.HasPrefix(out.URL, "https://") {
				return fmt.Errorf("url = %q", out.URL)
			}
			return nil
		}})
	}

	failed := 0
	for _, c := range checks {
		if err := c.run(); err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", c.name, err)
			continue
		}
		fmt.Printf("PASS  %s\n", c.name)
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d checks failed\n", failed, len(checks))
		os.Exit(1)
	}
	fmt.Printf("\nall %d checks passed\n", len(checks))
}

func call(method, url string, payload any, wantStatus int, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", "smoke-"+uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("HTTP %d (want %d): %s", resp.StatusCode, wantStatus, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
