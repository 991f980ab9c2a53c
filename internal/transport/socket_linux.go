//go:build linux

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type unixDatagram struct {
	fd int
}

func openUnixDatagram() (Socket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket creation error: %w", err)
	}
	return &unixDatagram{fd: fd}, nil
}

func (u *unixDatagram) SendTo(p []byte, path string) (int, error) {
	return unix.SendmsgN(u.fd, p, nil, &unix.SockaddrUnix{Name: path}, unix.MSG_DONTWAIT)
}

func (u *unixDatagram) Close() error {
	return unix.Close(u.fd)
}

func checkWritable(path string) error {
	return unix.Access(path, unix.W_OK)
}
