package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type lead struct {
	ID          string    `json:"id"`
	ContactName string    `json:"contact_name"`
	Email       string    `json:"email"`
	Source      string    `json:"source"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

func main() {
	limit := 20
	if len(os.Args) >= 2 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil {
			fmt.Println("Usage: go run ./scripts/list-leads [limit]")
			os.Exit(1)
		}
		limit = n
	}

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: ADMIN_JWT_SECRET environment variable not set")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	// Generate JWT token
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error signing token: %v\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("%s/admin/leads?limit=%d", apiURL, limit)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: HTTP %d\n%s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var out struct {
		Leads []lead `json:"leads"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d most recent leads:\n", out.Count)
	for _, l := range out.Leads {
		fmt.Printf("- %s  %-24s %-30s %-10s %s\n", l.CreatedAt.Format(time.RFC3339), l.ContactName, l.Email, l.Priority, l.Source)
	}
}
