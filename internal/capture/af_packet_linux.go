//go:build linux

package capture

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// etherTypeSV is the EtherType used by IEC 61850-9-2 Sampled Values
// frames.
const etherTypeSV = 0x88BA

// AFPacketReceiver receives SV frames directly off a network interface
// using a raw AF_PACKET/SOCK_DGRAM socket, joining the merging unit's
// multicast MAC and requesting kernel receive timestamps via
// SO_TIMESTAMPNS — the Go equivalent of the original project's
// hand-rolled libc socket setup (see DESIGN.md).
type AFPacketReceiver struct {
	fd int
}

// NewAFPacketReceiver binds a new receiver to the named interface,
// filtering for the SV EtherType and joining destMAC's multicast group.
func NewAFPacketReceiver(ifaceName string, destMAC [6]byte) (*AFPacketReceiver, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("capture: socket: %w", err)
	}

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("capture: resolve interface %q: %w", ifaceName, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(etherTypeSV),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("capture: bind: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPNS, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("capture: enable SO_TIMESTAMPNS: %w", err)
	}

	mreq := unix.PacketMreq{
		Ifindex: int32(iface.Index),
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    6,
	}
	copy(mreq.Address[:], destMAC[:])
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("capture: join multicast group: %w", err)
	}

	return &AFPacketReceiver{fd: fd}, nil
}

func htons(v uint16) uint16 {
	return (v<<8)&0xff00 | v>>8
}

// Recv blocks until a frame is received, returning its payload (aliasing
// buf) and the kernel-stamped arrival time carried as ancillary data
// alongside the datagram.
func (r *AFPacketReceiver) Recv(buf []byte) (Frame, error) {
	oob := make([]byte, unix.CmsgSpace(16)) // room for a 16-byte Timespec cmsg
	n, oobn, _, _, err := unix.Recvmsg(r.fd, buf, oob, 0)
	if err != nil {
		return Frame{}, fmt.Errorf("capture: recvmsg: %w", err)
	}

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return Frame{}, fmt.Errorf("capture: parse control message: %w", err)
	}

	sec, nsec, ok := parseTimespecCmsg(cmsgs)
	if !ok {
		return Frame{}, fmt.Errorf("capture: did not receive a timestamp control message")
	}

	return Frame{
		Payload:     buf[:n],
		TimestampS:  sec,
		TimestampNS: uint32(nsec),
	}, nil
}

// parseTimespecCmsg extracts the kernel __kernel_timespec (two 8-byte
// host-endian integers: seconds, nanoseconds) carried by an
// SO_TIMESTAMPNS control message.
func parseTimespecCmsg(cmsgs []unix.SocketControlMessage) (sec, nsec int64, ok bool) {
	for _, cmsg := range cmsgs {
		if cmsg.Header.Level == unix.SOL_SOCKET && cmsg.Header.Type == unix.SO_TIMESTAMPNS && len(cmsg.Data) >= 16 {
			return int64(hostEndianUint64(cmsg.Data[0:8])), int64(hostEndianUint64(cmsg.Data[8:16])), true
		}
	}
	return 0, 0, false
}

func hostEndianUint64(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b[:8])
}

// Close releases the underlying socket.
func (r *AFPacketReceiver) Close() error {
	return unix.Close(r.fd)
}
