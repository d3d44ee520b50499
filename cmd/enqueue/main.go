// Command enqueue publishes an ingestion task for a file already present in
// the shared upload directory. It is the operational counterpart of the API
// gateway's upload path and is handy for backfills and local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Birzhan20/neuro-search-core/internal/broker"
	"github.com/Birzhan20/neuro-search-core/internal/config"
	"github.com/Birzhan20/neuro-search-core/internal/models"
)

func main() {
	filePath := flag.String("file", "", "path to the document; relative paths resolve under the upload directory")
	taskID := flag.String("task-id", "", "task id (defaults to a new UUID)")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: enqueue -file <path> [-task-id <id>]")
		os.Exit(2)
	}

	id := *taskID
	if id == "" {
		id = uuid.New().String()
	}

	cfg := config.Load()
	path := resolveUploadPath(cfg.UploadPath, *filePath)

	pub, err := broker.NewPublisher(cfg.RabbitMQURL, cfg.IngestionQueue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect broker: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	task := models.IngestionTask{TaskID: id, FilePath: path}
	if err := pub.Publish(ctx, task); err != nil {
		fmt.Fprintf(os.Stderr, "publish task: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("enqueued task %s for %s\n", id, path)
}

// resolveUploadPath rewrites a relative path to where the ingestion service
// will find the file: inside the shared upload directory. Absolute paths pass
// through untouched.
func resolveUploadPath(uploadDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(uploadDir, path)
}
