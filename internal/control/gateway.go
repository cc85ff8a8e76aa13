package control

import (
	"context"
	"errors"
	"io"
	"net/http"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

// NewGateway returns the HTTP/JSON surface of s:
//
//	GET  /v1/status
//	POST /v1/share     {"text": "..."} or {"from_clipboard": true}
//	PUT  /v1/peers     {"peers": ["AA:BB:CC:DD:EE:FF"]}
//	PUT  /v1/autocopy  {"enabled": true}
//	GET  /v1/latest
//
// Errors are rendered by grpc-gateway from the gRPC status of the call.
func NewGateway(s *Server) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux(
		gwruntime.WithMarshalerOption(gwruntime.MIMEWildcard, &gwruntime.JSONBuiltin{}),
	)
	routes := []struct {
		method, path string
		h            gwruntime.HandlerFunc
	}{
		{http.MethodGet, "/v1/status", handle(mux, s.Status)},
		{http.MethodPost, "/v1/share", handle(mux, s.Share)},
		{http.MethodPut, "/v1/peers", handle(mux, s.SetPeers)},
		{http.MethodPut, "/v1/autocopy", handle(mux, s.SetAutoCopy)},
		{http.MethodGet, "/v1/latest", handle(mux, s.Latest)},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// handle adapts a unary control method to an HTTP handler. The request body,
// if any, is decoded into Req.
func handle[Req, Resp any](mux *gwruntime.ServeMux, call func(context.Context, *Req) (*Resp, error)) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		ctx := r.Context()
		inbound, outbound := gwruntime.MarshalerForRequest(mux, r)

		in := new(Req)
		if r.Body != nil && r.Method != http.MethodGet {
			if err := inbound.NewDecoder(r.Body).Decode(in); err != nil && !errors.Is(err, io.EOF) {
				gwruntime.HTTPError(ctx, mux, outbound, w, r, &gwruntime.HTTPStatusError{
					HTTPStatus: http.StatusBadRequest,
					Err:        err,
				})
				return
			}
		}

		resp, err := call(ctx, in)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		buf, err := outbound.Marshal(resp)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(resp))
		_, _ = w.Write(buf)
	}
}
