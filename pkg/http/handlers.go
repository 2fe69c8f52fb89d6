package http

import (
	"io"
	"net/http"

	goji "goji.io"
	"goji.io/pat"
)

// RegisterPulse binds the plain text pulse handler, used by process
// supervisors that cannot parse the healthcheck JSON.
func RegisterPulse(mux *goji.Mux) {
	mux.HandleFunc(pat.Get("/pulse"), pulseHandler)
}

// pulseHandler writes `ok` to the requester.
func pulseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, "ok")
}
