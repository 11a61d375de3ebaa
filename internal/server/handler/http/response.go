package http

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// success wraps fields into the {"success": true, ...} envelope used by the
// catalog endpoints.
func success(fields map[string]any) map[string]any {
	fields["success"] = true
	return fields
}
