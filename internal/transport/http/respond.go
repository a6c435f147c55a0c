package http

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = dErrors.MessageOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), body)
}
