// Package capture acquires raw frames from a network interface.
//
// Two modes exist. Link-layer capture goes through libpcap and hands back
// frames with whatever link header the device produces. Tunnel devices only
// carry IP packets, so interfaces whose name starts with a tunnel prefix are
// read through an AF_PACKET datagram socket that returns network-layer
// packets directly.
package capture

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"
)

var (
	ErrPermission = errors.New("capture: raw capture privilege required")
	ErrOpen       = errors.New("capture: cannot open interface")
	ErrNotOpen    = errors.New("capture: source not open")
	ErrClosed     = errors.New("capture: source closed")
)

// errPollTimeout is returned by a handle when no frame arrived within the
// poll interval.
var errPollTimeout = errors.New("capture: poll timeout")

// MaxFrameSize bounds the snap length.
const MaxFrameSize = 65535

// Mode is the framing a source delivers.
type Mode int

const (
	ModeLink Mode = iota
	ModeNetwork
)

func (m Mode) String() string {
	switch m {
	case ModeLink:
		return "link"
	case ModeNetwork:
		return "network"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Frame is one captured buffer. Data is only valid until the next Recv.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Source yields raw frames from one interface.
type Source interface {
	// Open acquires the capture resource.
	Open() error
	// Recv blocks until a frame is available. It returns ErrNotOpen before
	// Open and ErrClosed once Close has been called, including when Close
	// races with a blocked Recv.
	Recv() (Frame, error)
	// Close releases the resource. It is idempotent and may be called from
	// any goroutine.
	Close() error
	Mode() Mode
	Interface() string
}

// Options tune a Source.
type Options struct {
	SnapLen        int
	PollTimeout    time.Duration
	BufferMB       int
	Promiscuous    bool
	TunnelPrefixes []string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SnapLen:        MaxFrameSize,
		PollTimeout:    500 * time.Millisecond,
		BufferMB:       8,
		Promiscuous:    true,
		TunnelPrefixes: []string{"tun"},
	}
}

// ModeFor picks the capture mode for an interface name.
func ModeFor(iface string, tunnelPrefixes []string) Mode {
	for _, p := range tunnelPrefixes {
		if p != "" && strings.HasPrefix(iface, p) {
			return ModeNetwork
		}
	}
	return ModeLink
}

// New returns an unopened Source for iface.
func New(iface string, opts Options) Source {
	if opts.SnapLen <= 0 || opts.SnapLen > MaxFrameSize {
		opts.SnapLen = MaxFrameSize
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultOptions().PollTimeout
	}
	if opts.BufferMB <= 0 {
		opts.BufferMB = DefaultOptions().BufferMB
	}

	mode := ModeFor(iface, opts.TunnelPrefixes)
	open := func() (handle, error) { return openPcap(iface, opts) }
	if mode == ModeNetwork {
		open = func() (handle, error) { return openAFPacket(iface, opts) }
	}
	return newSource(iface, mode, open)
}

// handle is one opened capture backend.
type handle interface {
	// readFrame returns errPollTimeout when nothing arrived in time.
	readFrame() ([]byte, time.Time, error)
	close()
}

type source struct {
	iface string
	mode  Mode
	open  func() (handle, error)

	mu        sync.Mutex
	h         handle
	closed    chan struct{}
	closeOnce sync.Once
}

func newSource(iface string, mode Mode, open func() (handle, error)) *source {
	return &source{
		iface:  iface,
		mode:   mode,
		open:   open,
		closed: make(chan struct{}),
	}
}

func (s *source) Mode() Mode        { return s.mode }
func (s *source) Interface() string { return s.iface }

func (s *source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return ErrClosed
	}
	if s.h != nil {
		return nil
	}
	h, err := s.open()
	if err != nil {
		return openError(s.iface, err)
	}
	s.h = h
	return nil
}

func (s *source) Recv() (Frame, error) {
	for {
		if s.isClosed() {
			return Frame{}, ErrClosed
		}

		s.mu.Lock()
		if s.isClosed() {
			s.mu.Unlock()
			return Frame{}, ErrClosed
		}
		if s.h == nil {
			s.mu.Unlock()
			return Frame{}, ErrNotOpen
		}
		data, ts, err := s.h.readFrame()
		s.mu.Unlock()

		switch {
		case err == nil:
			return Frame{Data: data, Timestamp: ts}, nil
		case errors.Is(err, errPollTimeout):
			continue
		case s.isClosed():
			return Frame{}, ErrClosed
		default:
			return Frame{}, fmt.Errorf("capture: recv on %s: %w", s.iface, err)
		}
	}
}

func (s *source) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })

	// A blocked Recv holds the lock for at most one poll interval.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h != nil {
		s.h.close()
		s.h = nil
	}
	return nil
}

func (s *source) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func openError(iface string, err error) error {
	if isPermission(err) {
		return fmt.Errorf("%w on %s: %v", ErrPermission, iface, err)
	}
	return fmt.Errorf("%w %s: %v", ErrOpen, iface, err)
}

func isPermission(err error) bool {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return true
	}
	// libpcap reports privilege problems as plain text.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "operation not permitted")
}
