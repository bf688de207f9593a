package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/documentmetadata/internal/logging"
	"github.com/Lllllllleong/documentmetadata/internal/metrics"
	"github.com/Lllllllleong/documentmetadata/internal/services"
)

var (
	extractorInstance *services.MetadataExtractorFunction
	extractorMetrics  = metrics.New(nil)
	once              sync.Once
	initErr           error
)

func init() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	// Storage finalize events land here.
	functions.CloudEvent("ExtractMetadata", extractMetadata)
	functions.HTTP("ExtractorMetrics", serveMetrics)
}

// main is required by the Go Functions Framework.
func main() {}

func extractMetadata(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		extractorInstance, initErr = services.NewMetadataExtractor(context.Background(), extractorMetrics)
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

	// Errors are logged with context inside Process.
	return extractorInstance.Process(ctx, gcsEvent)
}

func serveMetrics(w http.ResponseWriter, r *http.Request) {
	extractorMetrics.Handler().ServeHTTP(w, r)
}
