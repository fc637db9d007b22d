// Package egress provides the dispatch scheduler's outbound seam: a
// narrow Sender interface plus a UDP implementation, kept external to
// the dispatch core the same way internal/capture keeps ingress
// external to decode.
package egress

import "net"

// Sender delivers a finished OpenPMU datagram to its configured
// destination.
type Sender interface {
	SendTo(data []byte, dest *net.UDPAddr) error
	Close() error
}

// UDPSender sends each datagram as a single UDP packet over an
// unconnected socket, so a single instance can serve destinations that
// change between calls.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender opens an unconnected UDP socket for sending.
func NewUDPSender() (*UDPSender, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &UDPSender{conn: conn}, nil
}

func (s *UDPSender) SendTo(data []byte, dest *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(data, dest)
	return err
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}
