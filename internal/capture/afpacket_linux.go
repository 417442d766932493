//go:build linux

package capture

import (
	"errors"
	"os"
	"time"

	"github.com/google/gopacket/afpacket"
)

type afpacketHandle struct {
	tp *afpacket.TPacket
}

// openAFPacket opens a cooked (SOCK_DGRAM) ring on iface. The kernel strips
// any link header so every frame starts at the IP header.
func openAFPacket(iface string, opts Options) (handle, error) {
	frameSize, blockSize, numBlocks, err := ringSize(opts.BufferMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(iface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(opts.PollTimeout),
		afpacket.SocketDgram,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, err
	}
	return &afpacketHandle{tp: tp}, nil
}

func (a *afpacketHandle) readFrame() ([]byte, time.Time, error) {
	data, ci, err := a.tp.ReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) {
			return nil, time.Time{}, errPollTimeout
		}
		return nil, time.Time{}, err
	}
	return data, ci.Timestamp, nil
}

func (a *afpacketHandle) close() {
	a.tp.Close()
}
