// Package control implements the clipsync.v1.Control API a running daemon
// serves on its IPC socket: gRPC (JSON codec) for the CLI and an HTTP/JSON
// gateway for scripts.
package control

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/transport"
)

// Transport is the part of transport.Service the control API drives.
type Transport interface {
	State() transport.State
	Peers() []string
	UpdatePeers(addrs []string)
	Share(ctx context.Context, text string) sender.Report
	ShareClipboard(ctx context.Context) sender.Report
	SetAutoCopy(on bool)
	AutoCopy() bool
	Latest() (transport.Received, bool)
	Subscribe() (<-chan transport.Received, func())
}

// Server implements ControlServer on top of a Transport.
type Server struct {
	t       Transport
	version string
	log     *slog.Logger
}

// NewServer returns a Server reporting version in Status.
func NewServer(t Transport, version string) *Server {
	return &Server{t: t, version: version, log: slog.With("component", "control")}
}

// Register adds s to gs.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}

func (s *Server) Status(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	st := s.t.State()
	resp := &StatusResponse{
		Version:  s.version,
		State:    st.String(),
		Running:  st == transport.Running,
		AutoCopy: s.t.AutoCopy(),
		Peers:    s.t.Peers(),
	}
	if rx, ok := s.t.Latest(); ok {
		resp.Latest = &rx
	}
	return resp, nil
}

func (s *Server) Share(ctx context.Context, req *ShareRequest) (*ShareResponse, error) {
	if req.FromClipboard && req.Text != "" {
		return nil, status.Error(codes.InvalidArgument, "text and from_clipboard are mutually exclusive")
	}
	var rep sender.Report
	if req.FromClipboard {
		rep = s.t.ShareClipboard(ctx)
	} else {
		rep = s.t.Share(ctx, req.Text)
	}
	s.log.Info("share requested", "result", rep.Result, "peers", len(rep.Peers))
	return NewShareResponse(rep), nil
}

func (s *Server) SetPeers(_ context.Context, req *SetPeersRequest) (*SetPeersResponse, error) {
	for _, p := range req.Peers {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if hw, err := net.ParseMAC(p); err != nil || len(hw) != 6 {
			return nil, status.Errorf(codes.InvalidArgument, "invalid device address %q", p)
		}
	}
	s.t.UpdatePeers(req.Peers)
	return &SetPeersResponse{Peers: s.t.Peers()}, nil
}

func (s *Server) SetAutoCopy(_ context.Context, req *SetAutoCopyRequest) (*SetAutoCopyResponse, error) {
	s.t.SetAutoCopy(req.Enabled)
	return &SetAutoCopyResponse{Enabled: s.t.AutoCopy()}, nil
}

func (s *Server) Latest(_ context.Context, _ *LatestRequest) (*LatestResponse, error) {
	rx, ok := s.t.Latest()
	if !ok {
		return &LatestResponse{}, nil
	}
	return &LatestResponse{Found: true, Clip: &rx}, nil
}

// Watch streams every received clip until the client goes away.
func (s *Server) Watch(_ *WatchRequest, stream grpc.ServerStream) error {
	events, cancel := s.t.Subscribe()
	defer cancel()

	s.log.Debug("watch started")
	defer s.log.Debug("watch ended")
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}
