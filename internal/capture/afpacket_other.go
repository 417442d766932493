//go:build !linux

package capture

import "errors"

func openAFPacket(string, Options) (handle, error) {
	return nil, errors.New("network-layer capture requires AF_PACKET (linux only)")
}
