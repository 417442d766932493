package capture

import (
	"errors"
	"time"

	"github.com/google/gopacket/pcap"
)

type pcapHandle struct {
	h *pcap.Handle
}

// openPcap opens a live libpcap handle. The read timeout doubles as the
// poll interval so Recv can notice Close.
func openPcap(iface string, opts Options) (handle, error) {
	h, err := pcap.OpenLive(iface, int32(opts.SnapLen), opts.Promiscuous, opts.PollTimeout)
	if err != nil {
		return nil, err
	}
	return &pcapHandle{h: h}, nil
}

func (p *pcapHandle) readFrame() ([]byte, time.Time, error) {
	data, ci, err := p.h.ReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			return nil, time.Time{}, errPollTimeout
		}
		return nil, time.Time{}, err
	}
	return data, ci.Timestamp, nil
}

func (p *pcapHandle) close() {
	p.h.Close()
}
