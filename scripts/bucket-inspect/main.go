// Package main lists the objects in the generated-sites storage bucket.
//
// Supabase Storage exposes an S3-compatible endpoint, so the AWS SDK works
// against it with path-style addressing.
//
// Usage:
//
//	go run ./scripts/bucket-inspect [--bucket=sites] [--public-base=URL]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/royscompany/royscompany-api/internal/app/bootstrap"
	appconfig "github.com/royscompany/royscompany-api/internal/config"
)

func main() {
	bucket := flag.String("bucket", "sites", "bucket name")
	publicBase := flag.String("public-base", os.Getenv("STORAGE_PUBLIC_URL"), "public object URL prefix, e.g. https://<ref>.supabase.co/storage/v1/object/public")
	flag.Parse()

	cfg := appconfig.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("Error loading AWS config: %v\n", err)
		os.Exit(1)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	fmt.Printf("Checking bucket %q...\n", *bucket)
	count := 0
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(*bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			fmt.Printf("Error listing files: %v\n", err)
			os.Exit(1)
		}
		for _, obj := range page.Contents {
			count++
			key := aws.ToString(obj.Key)
			created := "unknown"
			if obj.LastModified != nil {
				created = obj.LastModified.Format(time.RFC3339)
			}
			fmt.Printf("- %s (Created: %s, %d bytes)\n", key, created, aws.ToInt64(obj.Size))
			if *publicBase != "" {
				fmt.Printf("  URL: %s/%s/%s\n", strings.TrimRight(*publicBase, "/"), *bucket, key)
			}
		}
	}

	if count == 0 {
		fmt.Printf("Bucket %q is empty.\n", *bucket)
		return
	}
	fmt.Printf("Found %d files.\n", count)
}
