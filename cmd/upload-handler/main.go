package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/documentmetadata/internal/config"
	"github.com/Lllllllleong/documentmetadata/internal/logging"
	"github.com/Lllllllleong/documentmetadata/internal/metrics"
	"github.com/Lllllllleong/documentmetadata/internal/services"
)

var (
	uploadInstance *services.UploadHandler
	uploadMetrics  = metrics.New(nil)
	once           sync.Once
	initErr        error
)

func init() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	functions.HTTP("HandleUpload", handleUpload)
	functions.HTTP("Metrics", serveMetrics)
}

// main is required by the Go Functions Framework.
func main() {}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg config.Upload
		cfg, initErr = config.LoadUpload()
		if initErr == nil {
			uploadInstance = services.NewUploadHandler(cfg, uploadMetrics, slog.Default())
		}
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	uploadInstance.ServeHTTP(w, r)
}

func serveMetrics(w http.ResponseWriter, r *http.Request) {
	uploadMetrics.Handler().ServeHTTP(w, r)
}
