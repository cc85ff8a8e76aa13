package control

import (
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/sharing"
	"go.klb.dev/clipsync/internal/transport"
)

type StatusRequest struct{}

type StatusResponse struct {
	Version  string              `json:"version"`
	State    string              `json:"state"`
	Running  bool                `json:"running"`
	AutoCopy bool                `json:"auto_copy"`
	Peers    []string            `json:"peers"`
	Latest   *transport.Received `json:"latest,omitempty"`
}

// ShareRequest shares Text, or the daemon's local clipboard when
// FromClipboard is set.
type ShareRequest struct {
	Text          string `json:"text,omitempty"`
	FromClipboard bool   `json:"from_clipboard,omitempty"`
}

type PeerOutcome struct {
	Peer   string         `json:"peer"`
	Result sharing.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

type ShareResponse struct {
	// Result is the outcome of the last peer contacted.
	Result  sharing.Result `json:"result"`
	Worst   sharing.Result `json:"worst"`
	Message string         `json:"message"`
	Peers   []PeerOutcome  `json:"peers,omitempty"`
}

// NewShareResponse converts a broadcast report to its API form.
func NewShareResponse(rep sender.Report) *ShareResponse {
	out := &ShareResponse{
		Result:  rep.Result,
		Worst:   rep.Worst(),
		Message: rep.Result.Message(),
	}
	for _, o := range rep.Peers {
		po := PeerOutcome{Peer: o.Peer, Result: o.Result}
		if o.Err != nil {
			po.Error = o.Err.Error()
		}
		out.Peers = append(out.Peers, po)
	}
	return out
}

type SetPeersRequest struct {
	Peers []string `json:"peers"`
}

type SetPeersResponse struct {
	Peers []string `json:"peers"`
}

type SetAutoCopyRequest struct {
	Enabled bool `json:"enabled"`
}

type SetAutoCopyResponse struct {
	Enabled bool `json:"enabled"`
}

type LatestRequest struct{}

type LatestResponse struct {
	Found bool                `json:"found"`
	Clip  *transport.Received `json:"clip,omitempty"`
}

type WatchRequest struct{}
