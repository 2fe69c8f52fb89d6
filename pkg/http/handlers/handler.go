package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/logger"
)

// Env is used to pass the published device state in to handlers
type Env struct {
	store *device.Store
}

// Handler is a custom handler type that provides some error handling niceties.
type Handler struct {
	env     *Env
	handler func(env *Env, w http.ResponseWriter, r *http.Request) error
}

// ServeHTTP is our implementation of the Handler interface
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.handler(h.env, w, r)
	if err != nil {
		switch e := err.(type) {
		case Error:
			if e.Status() == http.StatusInternalServerError {
				log := logger.FromContext(r.Context())
				log.Log("msg", "internal server error", "error", e.Error())
			}

			b, innerErr := json.Marshal(e)
			if innerErr != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(e.Status())
			w.Write(b)
		default:
			log := logger.FromContext(r.Context())
			log.Log("msg", "internal server error", "error", err.Error())
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// writeJSON marshals v as the response body
func writeJSON(w http.ResponseWriter, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &HTTPError{Code: http.StatusInternalServerError, Err: err}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(b)

	return nil
}
