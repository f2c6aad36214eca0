package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mercator-hq/kyosan/pkg/api"
)

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) *api.ErrorResponse {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return api.NewError("Request body too large", api.ErrorTypeRequestTooLarge, "", api.CodeRequestTooLarge)
		}
		return api.NewInvalidRequestError("Invalid JSON: "+err.Error(), "", api.CodeInvalidJSON)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	api.WriteError(w, api.NewError("Method not allowed", api.ErrorTypeMethodNotAllowed, "", ""))
}
