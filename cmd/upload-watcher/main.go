package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/finreview/compliancereviewflow/internal/services"
)

var (
	watcherInstance *services.UploadWatcherFunction
	once            sync.Once
	initErr         error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes GCS object
	// finalize events here.
	functions.CloudEvent("WatchUploads", watchUploads)
}

// main is required by the Go Functions Framework.
func main() {}

func watchUploads(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		watcherInstance, initErr = services.NewUploadWatcher(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning an error marks the invocation as failed so it is retried.
	return watcherInstance.Process(ctx, gcsEvent)
}
