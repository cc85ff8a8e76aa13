//go:build !linux

package bluez

import (
	"context"

	"go.klb.dev/clipsync/internal/listener"
	"go.klb.dev/clipsync/internal/wire"
)

// Radio is unavailable off Linux; every operation fails with ErrUnsupported.
type Radio struct{}

func Open(Options) (*Radio, error) { return nil, ErrUnsupported }

func (r *Radio) ConnectAllowed(context.Context) bool { return false }

func (r *Radio) BondedDevices(context.Context) ([]Device, error) { return nil, ErrUnsupported }

func (r *Radio) Listen(context.Context) (listener.Acceptor, error) { return nil, ErrUnsupported }

func (r *Radio) Dial(context.Context, string) (wire.Stream, error) { return nil, ErrUnsupported }

func (r *Radio) Close() error { return nil }
