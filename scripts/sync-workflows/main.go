// Package main pushes local n8n workflow definitions to an n8n instance,
// creating new workflows and updating existing ones matched by name.
//
// Usage:
//
//	N8N_API_KEY=... go run ./scripts/sync-workflows [--dir=./workflows] [--host=http://localhost:5680]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/royscompany/royscompany-api/internal/automation"
	"github.com/royscompany/royscompany-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "./workflows", "directory containing *.json workflow exports")
	host := flag.String("host", envOr("N8N_HOST", "http://localhost:5680"), "n8n base URL")
	flag.Parse()

	apiKey := os.Getenv("N8N_API_KEY")
	if apiKey == "" {
		fmt.Println("Error: N8N_API_KEY environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := automation.NewWorkflowClient(*host, apiKey, logging.New("warn"))
	report, err := client.Sync(ctx, *dir)
	if err != nil {
		fmt.Printf("Failed to fetch workflows: %v\n", err)
		os.Exit(1)
	}

	for _, name := range report.Updated {
		fmt.Printf("updated %s\n", name)
	}
	for _, name := range report.Created {
		fmt.Printf("created %s\n", name)
	}
	files := make([]string, 0, len(report.Failed))
	for file := range report.Failed {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		fmt.Printf("FAILED %s: %v\n", file, report.Failed[file])
	}
	if len(files) > 0 {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
