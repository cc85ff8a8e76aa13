package main

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.klb.dev/clipsync/internal/control"
)

// controlHTTPHandler returns the HTTP/JSON gateway of srv. When the gateway
// cannot be built every request gets 503, so clients routed to the HTTP
// side of the control socket fail fast instead of hanging.
func controlHTTPHandler(srv *control.Server) http.Handler {
	mux, err := control.NewGateway(srv)
	if err != nil {
		return unavailableHandler(err)
	}
	return mux
}

func unavailableHandler(cause error) http.Handler {
	slog.Error("control gateway unavailable", "err", cause)
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "control gateway unavailable: "+cause.Error(), http.StatusServiceUnavailable)
	})
}

// serveHTTPGateway serves h over HTTP/1.1 on the cmux side-listener ln.
func serveHTTPGateway(ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	return srv.Serve(ln)
}
