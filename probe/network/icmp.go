package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// protocolICMP is the IANA protocol number of ICMP for IPv4.
const protocolICMP = 1

// ReplyKind classifies the ICMP message that answered an echo request.
type ReplyKind int

const (
	// ReplyEcho means the destination answered.
	ReplyEcho ReplyKind = iota + 1
	// ReplyTimeExceeded means a router on the path dropped the packet
	// because its TTL expired.
	ReplyTimeExceeded
	// ReplyUnreachable means a router reported the destination unreachable.
	ReplyUnreachable
)

// Reply is the outcome of a single echo request.
type Reply struct {
	Peer net.IP
	Kind ReplyKind
	RTT  time.Duration
}

// Pinger sends a single ICMP echo request. ttl <= 0 uses the system default.
// A request that receives no answer within timeout returns an error for
// which IsTimeout reports true.
type Pinger interface {
	Echo(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (Reply, error)
}

// ICMPPinger implements Pinger with golang.org/x/net/icmp. It prefers a raw
// "ip4:icmp" socket and falls back to an unprivileged "udp4" ping socket.
// Routers' time-exceeded messages are only observed on raw sockets, so
// traceroute needs CAP_NET_RAW (or root) to show intermediate hops.
type ICMPPinger struct {
	id      int
	seq     atomic.Uint32
	payload []byte
}

// NewICMPPinger creates a pinger identified by the current process id.
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{
		id:      os.Getpid() & 0xffff,
		payload: make([]byte, 32),
	}
}

// Echo implements Pinger.
func (p *ICMPPinger) Echo(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (Reply, error) {
	dst4 := dst.To4()
	if dst4 == nil {
		return Reply{}, fmt.Errorf("%s is not an IPv4 address", dst)
	}

	conn, privileged, err := listen()
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if ttl > 0 {
		if err := conn.IPv4PacketConn().SetTTL(ttl); err != nil {
			return Reply{}, fmt.Errorf("set ttl: %w", err)
		}
	}

	seq := int(p.seq.Add(1) & 0xffff)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: p.payload},
	}

	wb, err := msg.Marshal(nil)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal echo: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return Reply{}, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	var target net.Addr = &net.IPAddr{IP: dst4}
	if !privileged {
		target = &net.UDPAddr{IP: dst4}
	}

	start := time.Now()

	if _, err := conn.WriteTo(wb, target); err != nil {
		return Reply{}, fmt.Errorf("send echo: %w", err)
	}

	rb := make([]byte, 1500)

	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Reply{}, ctxErr
			}
			return Reply{}, err
		}

		rm, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil {
			continue
		}

		reply := Reply{Peer: peerIP(peer), RTT: time.Since(start)}

		switch rm.Type {
		case ipv4.ICMPTypeEchoReply:
			echo, ok := rm.Body.(*icmp.Echo)
			if !ok || echo.Seq != seq {
				continue
			}
			// Unprivileged sockets get their id rewritten by the kernel.
			if privileged && echo.ID != p.id {
				continue
			}
			reply.Kind = ReplyEcho
		case ipv4.ICMPTypeTimeExceeded:
			body, ok := rm.Body.(*icmp.TimeExceeded)
			if !ok || !matchesQuotedEcho(body.Data, seq) {
				continue
			}
			reply.Kind = ReplyTimeExceeded
		case ipv4.ICMPTypeDestinationUnreachable:
			body, ok := rm.Body.(*icmp.DstUnreach)
			if !ok || !matchesQuotedEcho(body.Data, seq) {
				continue
			}
			reply.Kind = ReplyUnreachable
		default:
			continue
		}

		return reply, nil
	}
}

func listen() (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err == nil {
		return conn, true, nil
	}

	conn, udpErr := icmp.ListenPacket("udp4", "0.0.0.0")
	if udpErr != nil {
		return nil, false, fmt.Errorf("open icmp socket: %w", errors.Join(err, udpErr))
	}

	return conn, false, nil
}

// matchesQuotedEcho reports whether an ICMP error body quotes our echo
// request. The body holds the original IPv4 header followed by at least the
// first 8 bytes of the original ICMP message.
func matchesQuotedEcho(data []byte, seq int) bool {
	if len(data) < ipv4.HeaderLen {
		return false
	}

	hl := int(data[0]&0x0f) * 4
	if hl < ipv4.HeaderLen || len(data) < hl+8 {
		return false
	}

	inner := data[hl:]
	if inner[0] != byte(ipv4.ICMPTypeEcho) {
		return false
	}

	return int(binary.BigEndian.Uint16(inner[6:8])) == seq
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}

// IsTimeout reports whether err is a read timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (Reply, error)

// Echo implements Pinger.
func (f PingerFunc) Echo(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (Reply, error) {
	return f(ctx, dst, ttl, timeout)
}
