//go:build linux

package bluez

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	dbus "github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"

	"go.klb.dev/clipsync/internal/listener"
	"go.klb.dev/clipsync/internal/wire"
)

// pendingConns is how many inbound connections may wait while the listener
// is busy with the previous one.
const pendingConns = 4

var pathCounter uint64

// Radio is a BlueZ adapter used as the clipsync transport.
type Radio struct {
	bus         *dbus.Conn
	adapter     string
	adapterPath dbus.ObjectPath
	channel     uint16
	log         *slog.Logger

	mu      sync.Mutex
	closed  bool
	client  *clientProfile
	cleanup []func()
}

// Open connects to the system bus and binds to the configured adapter.
func Open(opts Options) (*Radio, error) {
	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect system bus: %w", err)
	}
	if opts.Adapter == "" {
		opts.Adapter = DefaultAdapter
	}
	r := &Radio{
		bus:         bus,
		adapter:     opts.Adapter,
		adapterPath: AdapterPath(opts.Adapter),
		channel:     opts.Channel,
		log:         slog.With("component", "bluez", "adapter", opts.Adapter),
	}
	r.cleanup = append(r.cleanup, func() { bus.Close() })
	return r, nil
}

// ConnectAllowed reports whether the adapter exists and is powered.
func (r *Radio) ConnectAllowed(ctx context.Context) bool {
	var v dbus.Variant
	call := r.bus.Object(bluezService, r.adapterPath).
		CallWithContext(ctx, propsIface+".Get", 0, adapterIface, "Powered")
	if err := call.Store(&v); err != nil {
		r.log.Warn("adapter unavailable", "err", err)
		return false
	}
	powered, _ := v.Value().(bool)
	if !powered {
		r.log.Warn("adapter is powered off")
	}
	return powered
}

// BondedDevices lists the paired devices of the adapter, sorted by address.
func (r *Radio) BondedDevices(ctx context.Context) ([]Device, error) {
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := r.bus.Object(bluezService, "/").CallWithContext(ctx, objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("bluez: GetManagedObjects: %w", call.Err)
	}
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}

	var out []Device
	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if adapter, _ := props["Adapter"].Value().(dbus.ObjectPath); adapter != r.adapterPath {
			continue
		}
		if d := deviceFromProps(path, props); d.Paired {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Listen registers the clipsync service as a BlueZ server profile and
// returns an acceptor for its inbound connections.
func (r *Radio) Listen(ctx context.Context) (listener.Acceptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, net.ErrClosed
	}

	p := newServerAcceptor(r.log)
	path := nextPath("server")
	if err := r.bus.Export(profileObject(p.deliver), path, profileIface); err != nil {
		return nil, fmt.Errorf("bluez: export server profile: %w", err)
	}
	opts := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant(ServiceName),
		"Role":                  dbus.MakeVariant("server"),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}
	if r.channel > 0 {
		opts["Channel"] = dbus.MakeVariant(r.channel)
	}
	pm := r.bus.Object(bluezService, "/org/bluez")
	if call := pm.CallWithContext(ctx, profileManagerIface+".RegisterProfile", 0, path, ServiceUUID.String(), opts); call.Err != nil {
		_ = r.bus.Export(nil, path, profileIface)
		return nil, fmt.Errorf("bluez: RegisterProfile(server): %w", call.Err)
	}
	r.log.Info("service registered", "name", ServiceName, "uuid", ServiceUUID)

	p.unregister = func() {
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, path).Err
		_ = r.bus.Export(nil, path, profileIface)
	}
	return p, nil
}

// Dial connects to the clipsync service on the device at addr.
func (r *Radio) Dial(ctx context.Context, addr string) (wire.Stream, error) {
	devPath, err := DevicePath(r.adapter, addr)
	if err != nil {
		return nil, err
	}
	cp, err := r.clientProfile(ctx)
	if err != nil {
		return nil, err
	}

	release, err := cp.acquire(ctx, devPath)
	if err != nil {
		return nil, fmt.Errorf("bluez: connect: %w", err)
	}
	defer release()

	ch := cp.expect(devPath)
	defer cp.forget(devPath, ch)

	dev := r.bus.Object(bluezService, devPath)
	if call := dev.CallWithContext(ctx, deviceIface+".ConnectProfile", 0, ServiceUUID.String()); call.Err != nil {
		return nil, fmt.Errorf("bluez: ConnectProfile: %w", call.Err)
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("bluez: connect: %w", ctx.Err())
	}
}

// Close unregisters profiles and closes the bus connection.
func (r *Radio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cleanup := r.cleanup
	r.cleanup = nil
	r.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	return nil
}

// clientProfile registers the client-role profile on first use. BlueZ
// delivers the sockets of ConnectProfile calls to it.
func (r *Radio) clientProfile(ctx context.Context) (*clientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, net.ErrClosed
	}
	if r.client != nil {
		return r.client, nil
	}

	p := newClientProfile(r.log)
	path := nextPath("client")
	if err := r.bus.Export(profileObject(p.deliver), path, profileIface); err != nil {
		return nil, fmt.Errorf("bluez: export client profile: %w", err)
	}
	opts := map[string]dbus.Variant{
		"Name": dbus.MakeVariant(ServiceName),
		"Role": dbus.MakeVariant("client"),
	}
	pm := r.bus.Object(bluezService, "/org/bluez")
	if call := pm.CallWithContext(ctx, profileManagerIface+".RegisterProfile", 0, path, ServiceUUID.String(), opts); call.Err != nil {
		_ = r.bus.Export(nil, path, profileIface)
		return nil, fmt.Errorf("bluez: RegisterProfile(client): %w", call.Err)
	}
	r.cleanup = append(r.cleanup, func() {
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, path).Err
		_ = r.bus.Export(nil, path, profileIface)
	})
	r.client = p
	return p, nil
}

func nextPath(role string) dbus.ObjectPath {
	id := atomic.AddUint64(&pathCounter, 1)
	return dbus.ObjectPath("/dev/klb/clipsync/" + role + strconv.FormatUint(id, 10))
}

// rfcommStream is a connected RFCOMM socket handed over by BlueZ.
type rfcommStream struct {
	*os.File
	remote string
}

func (s *rfcommStream) Remote() string { return s.remote }

// newStream takes ownership of fd. The socket is switched to non-blocking
// mode so the runtime poller can enforce deadlines.
func newStream(fd dbus.UnixFD, dev dbus.ObjectPath) (*rfcommStream, error) {
	if err := unix.SetNonblock(int(fd), true); err != nil {
		unix.Close(int(fd))
		return nil, fmt.Errorf("bluez: set nonblock: %w", err)
	}
	addr := AddressFromPath(dev)
	return &rfcommStream{File: os.NewFile(uintptr(fd), "rfcomm:"+addr), remote: addr}, nil
}

var errRejected = &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []any{"not accepting"}}

// profileObject is the org.bluez.Profile1 object exported on the bus. It
// forwards every new connection to the wrapped function.
type profileObject func(dev dbus.ObjectPath, fd dbus.UnixFD) *dbus.Error

func (f profileObject) Release() *dbus.Error                               { return nil }
func (f profileObject) Cancel() *dbus.Error                                { return nil }
func (f profileObject) RequestDisconnection(_ dbus.ObjectPath) *dbus.Error { return nil }

func (f profileObject) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	return f(dev, fd)
}

// serverAcceptor queues the connections of the server profile for the
// listener.
type serverAcceptor struct {
	conns      chan *rfcommStream
	done       chan struct{}
	once       sync.Once
	unregister func()
	log        *slog.Logger
}

func newServerAcceptor(log *slog.Logger) *serverAcceptor {
	return &serverAcceptor{
		conns: make(chan *rfcommStream, pendingConns),
		done:  make(chan struct{}),
		log:   log,
	}
}

func (p *serverAcceptor) deliver(dev dbus.ObjectPath, fd dbus.UnixFD) *dbus.Error {
	s, err := newStream(fd, dev)
	if err != nil {
		p.log.Warn("inbound connection unusable", "err", err)
		return errRejected
	}
	select {
	case <-p.done:
		s.Close()
		return errRejected
	default:
	}
	select {
	case p.conns <- s:
		return nil
	default:
		p.log.Warn("inbound connection rejected, listener busy", "peer", s.remote)
	}
	s.Close()
	return errRejected
}

func (p *serverAcceptor) Accept() (wire.Stream, error) {
	select {
	case s := <-p.conns:
		return s, nil
	case <-p.done:
		return nil, net.ErrClosed
	}
}

func (p *serverAcceptor) Close() error {
	p.once.Do(func() {
		close(p.done)
		if p.unregister != nil {
			p.unregister()
		}
		for {
			select {
			case s := <-p.conns:
				s.Close()
			default:
				return
			}
		}
	})
	return nil
}

// clientProfile routes each socket of the client profile to the Dial
// waiting on that device. BlueZ identifies a socket only by its device, so
// at most one Dial per device may be between ConnectProfile and delivery.
type clientProfile struct {
	mu      sync.Mutex
	waiting map[dbus.ObjectPath]chan *rfcommStream
	busy    map[dbus.ObjectPath]chan struct{}
	log     *slog.Logger
}

func newClientProfile(log *slog.Logger) *clientProfile {
	return &clientProfile{
		waiting: make(map[dbus.ObjectPath]chan *rfcommStream),
		busy:    make(map[dbus.ObjectPath]chan struct{}),
		log:     log,
	}
}

// acquire blocks until no other Dial to dev is in flight or ctx is done.
func (p *clientProfile) acquire(ctx context.Context, dev dbus.ObjectPath) (func(), error) {
	p.mu.Lock()
	sem, ok := p.busy[dev]
	if !ok {
		sem = make(chan struct{}, 1)
		p.busy[dev] = sem
	}
	p.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *clientProfile) expect(dev dbus.ObjectPath) chan *rfcommStream {
	ch := make(chan *rfcommStream, 1)
	p.mu.Lock()
	p.waiting[dev] = ch
	p.mu.Unlock()
	return ch
}

// forget drops the waiter and closes a socket that arrived after Dial gave up.
func (p *clientProfile) forget(dev dbus.ObjectPath, ch chan *rfcommStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waiting[dev] == ch {
		delete(p.waiting, dev)
	}
	select {
	case s := <-ch:
		s.Close()
	default:
	}
}

func (p *clientProfile) deliver(dev dbus.ObjectPath, fd dbus.UnixFD) *dbus.Error {
	s, err := newStream(fd, dev)
	if err != nil {
		p.log.Warn("outbound connection unusable", "err", err)
		return errRejected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.waiting[dev]
	if !ok {
		s.Close()
		return errRejected
	}
	delete(p.waiting, dev)
	ch <- s
	return nil
}
