//go:build !linux

package transport

import "errors"

var errUnsupported = errors.New("unix datagram transport requires linux")

func openUnixDatagram() (Socket, error) {
	return nil, errUnsupported
}

func checkWritable(string) error {
	return errUnsupported
}
