//go:build !linux && !darwin && !windows

package clip

// New returns an in-process clipboard; there is no system clipboard
// integration on this platform.
func New() Backend {
	return NewMemory()
}
