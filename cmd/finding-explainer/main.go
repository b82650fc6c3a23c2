package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/finreview/compliancereviewflow/internal/models"
	"github.com/finreview/compliancereviewflow/internal/services"
)

var (
	explainerInstance *services.ExplainerFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("ExplainFinding", explainFinding)
}

// main is required by the Go Functions Framework.
func main() {}

func explainFinding(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		explainerInstance, initErr = services.NewExplainerFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Explainer initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := explainerInstance.Process(r.Context(), &req)
	if err != nil {
		slog.Error("Explanation failed", "error", err, "versionId", req.VersionID)
		switch {
		case errors.Is(err, models.ErrVersionNotFound):
			http.Error(w, "Not Found: "+err.Error(), http.StatusNotFound)
		case errors.Is(err, models.ErrMissingGCPPath):
			http.Error(w, "Unprocessable Entity: "+err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
