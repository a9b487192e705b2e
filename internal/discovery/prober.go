package discovery

import (
	"context"
	"hash/fnv"
	"net"
	"net/netip"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Prober answers whether a host is reachable.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr) (bool, error)
}

// TCPProber treats a host as reachable when any of the ports accepts
// or actively refuses a connection within the timeout.
type TCPProber struct {
	Ports   []int
	Timeout time.Duration
}

func (p *TCPProber) Probe(ctx context.Context, addr netip.Addr) (bool, error) {
	dialer := &net.Dialer{Timeout: p.Timeout}

	for _, port := range p.Ports {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(port)))
		if err == nil {
			_ = conn.Close()
			return true, nil
		}

		if errors.Is(err, syscall.ECONNREFUSED) {
			return true, nil
		}
	}

	return false, nil
}

// ICMPProber sends a single unprivileged ICMP echo request.
type ICMPProber struct {
	Timeout time.Duration
}

func (p *ICMPProber) Probe(ctx context.Context, addr netip.Addr) (bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return false, errors.Wrap(err, "icmp listen")
	}
	defer conn.Close()

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return false, errors.Wrap(err, "icmp deadline")
	}

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("snatt"),
		},
	}

	wb, err := msg.Marshal(nil)
	if err != nil {
		return false, errors.Wrap(err, "icmp marshal")
	}

	if _, err := conn.WriteTo(wb, &net.UDPAddr{IP: addr.AsSlice()}); err != nil {
		return false, errors.Wrap(err, "icmp write")
	}

	rb := make([]byte, 1500)

	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return false, nil
			}

			return false, errors.Wrap(err, "icmp read")
		}

		udpPeer, ok := peer.(*net.UDPAddr)
		if !ok || !udpPeer.IP.Equal(addr.AsSlice()) {
			continue
		}

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), rb[:n])
		if err != nil {
			continue
		}

		if reply.Type == ipv4.ICMPTypeEchoReply {
			return true, nil
		}
	}
}

// DryRunProber reports a stable pseudo random two thirds of addresses as reachable.
type DryRunProber struct{}

func (p *DryRunProber) Probe(ctx context.Context, addr netip.Addr) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(addr.String()))

	return h.Sum32()%3 != 0, nil
}
