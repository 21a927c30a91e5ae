package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// ErrorBody is the JSON body of every failed request
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RespondJSON writes payload with the given status code
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Errorf("Failed to encode JSON response: %v", err)
		}
	}
}

func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, ErrorBody{Status: "error", Message: message})
}

// PathID parses the named path wildcard as a positive integer id
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
