package plugins

import (
	"encoding/json"
	"net/http"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"go.uber.org/zap"
)

//TransformRequest is the body posted to an out-of-process bulk transformer
type TransformRequest struct {
	Issues []diagnostics.Issue `json:"issues"`
}

//TransformPath is where a transform microservice accepts requests
const TransformPath = "/transform"

//NewTransformHandler exposes a bulk transformer over HTTP, so that a transform can live in its own process
//and be reached by the drone through the "remote" analysis plugin
func NewTransformHandler(transformer BulkTransformer, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(TransformPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		var req TransformRequest
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			logger.Warnw("Error decoding issues during transform", "error", err)
			http.Error(w, "malformed transform request", http.StatusBadRequest)
			return
		}

		out := transformer.TransformAll(r.Context(), req.Issues)
		if out == nil {
			out = []diagnostics.Issue{}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			logger.Warnw("Error encoding transformed issues", "error", err)
		}
	})
	return mux
}
