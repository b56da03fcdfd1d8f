// Package udpradio is a PHY backend that carries frames over UDP
// datagrams between two processes on a network, for running the gateway
// and a node as separate processes without real radio hardware. It
// plays the same "test bus reachable over a network" role as the
// teacher's pkg/can/virtual (a TCP-backed CAN bus for testing), adapted
// to UDP point-to-point datagrams since our PHY contract is a direct
// peer link, not a broadcast bus with a broker.
package udpradio

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fieldmesh/loraota/pkg/radio"
)

func init() {
	radio.RegisterBackend("udp", New)
}

// New constructs a udpradio PHY. channel is "localAddr,remoteAddr", e.g.
// "127.0.0.1:9000,127.0.0.1:9001".
func New(channel string) (radio.PHY, error) {
	parts := strings.SplitN(channel, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("udpradio: channel must be \"local,remote\", got %q", channel)
	}
	localAddr, err := net.ResolveUDPAddr("udp", parts[0])
	if err != nil {
		return nil, fmt.Errorf("udpradio: bad local address: %w", err)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", parts[1])
	if err != nil {
		return nil, fmt.Errorf("udpradio: bad remote address: %w", err)
	}
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("udpradio: listen: %w", err)
	}
	return &PHY{conn: conn, remote: remoteAddr}, nil
}

// PHY implements radio.PHY over a UDP socket.
type PHY struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// Transmit sends buf as a single UDP datagram to the configured peer.
func (p *PHY) Transmit(buf []byte) error {
	_, err := p.conn.WriteToUDP(buf, p.remote)
	return err
}

// ReceiveSingle blocks for up to window for one datagram.
func (p *PHY) ReceiveSingle(window time.Duration) ([]byte, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return nil, err
	}
	return p.read()
}

// ReceiveContinuous blocks indefinitely for one datagram.
func (p *PHY) ReceiveContinuous() ([]byte, error) {
	if err := p.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return p.read()
}

func (p *PHY) read() ([]byte, error) {
	buf := make([]byte, radio.MTU)
	n, _, err := p.conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, radio.ErrReceiveTimeout
		}
		return nil, err
	}
	return buf[:n], nil
}

// Close releases the underlying socket.
func (p *PHY) Close() error {
	return p.conn.Close()
}
