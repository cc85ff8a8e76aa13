package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/clipsync/internal/transport"
)

// Dial returns a connection to the control socket at path. No auth is
// needed; the socket is local and owner-restricted.
func Dial(path string) (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"unix://"+path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

// Client calls clipsync.v1.Control.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "Status", &StatusRequest{}, opts)
}

func (c *Client) Share(ctx context.Context, req *ShareRequest, opts ...grpc.CallOption) (*ShareResponse, error) {
	return invoke[ShareResponse](ctx, c, "Share", req, opts)
}

func (c *Client) SetPeers(ctx context.Context, peers []string, opts ...grpc.CallOption) (*SetPeersResponse, error) {
	return invoke[SetPeersResponse](ctx, c, "SetPeers", &SetPeersRequest{Peers: peers}, opts)
}

func (c *Client) SetAutoCopy(ctx context.Context, on bool, opts ...grpc.CallOption) (*SetAutoCopyResponse, error) {
	return invoke[SetAutoCopyResponse](ctx, c, "SetAutoCopy", &SetAutoCopyRequest{Enabled: on}, opts)
}

func (c *Client) Latest(ctx context.Context, opts ...grpc.CallOption) (*LatestResponse, error) {
	return invoke[LatestResponse](ctx, c, "Latest", &LatestRequest{}, opts)
}

// WatchStream yields received clips from Watch.
type WatchStream struct {
	grpc.ClientStream
}

// Recv blocks for the next received clip.
func (w *WatchStream) Recv() (*transport.Received, error) {
	ev := new(transport.Received)
	if err := w.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch opens the received-clip stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context, opts ...grpc.CallOption) (*WatchStream, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	st, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	if err := st.SendMsg(&WatchRequest{}); err != nil {
		return nil, err
	}
	if err := st.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{ClientStream: st}, nil
}
