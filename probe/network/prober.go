package network

import (
	"context"
	"net"
	"time"

	"github.com/hupe1980/triage/logging"
)

const (
	// DefaultPingTimeout bounds a ping.
	DefaultPingTimeout = 5 * time.Second
	// DefaultHopTimeout bounds every traceroute hop.
	DefaultHopTimeout = 1000 * time.Millisecond
	// DefaultMaxHops caps the traceroute length.
	DefaultMaxHops = 30
)

// Unreachable is the ping sentinel.
const Unreachable int64 = -1

// NoReply is the traceroute entry for a silent hop.
const NoReply = "*"

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Options configures a Prober.
type Options struct {
	Pinger      Pinger
	Resolver    Resolver
	Interfaces  InterfaceSource
	PingTimeout time.Duration
	HopTimeout  time.Duration
	MaxHops     int
	Logger      logging.Logger
}

// Prober runs the network diagnostics.
type Prober struct {
	opts Options
}

// New creates a Prober backed by ICMP, the default resolver and gopsutil.
func New(optFns ...func(o *Options)) *Prober {
	opts := Options{
		PingTimeout: DefaultPingTimeout,
		HopTimeout:  DefaultHopTimeout,
		MaxHops:     DefaultMaxHops,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Pinger == nil {
		opts.Pinger = NewICMPPinger()
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	if opts.Interfaces == nil {
		opts.Interfaces = SystemInterfaces{}
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Prober{opts: opts}
}

// Ping returns the round trip time to host in milliseconds, or exactly -1
// when the host cannot be resolved or does not answer in time.
func (p *Prober) Ping(ctx context.Context, host string) int64 {
	ip, err := p.resolve(ctx, host)
	if err != nil {
		p.opts.Logger.Debug("probe.ping.unresolved", "host", host, "error", err.Error())
		return Unreachable
	}

	reply, err := p.opts.Pinger.Echo(ctx, ip, 0, p.opts.PingTimeout)
	if err != nil {
		p.opts.Logger.Debug("probe.ping.failed", "host", host, "error", err.Error())
		return Unreachable
	}

	if reply.Kind != ReplyEcho {
		return Unreachable
	}

	return reply.RTT.Milliseconds()
}

// IsConnected reports whether any non-loopback interface is up with an address.
func (p *Prober) IsConnected(ctx context.Context) bool {
	adapters, err := p.opts.Interfaces.Interfaces(ctx)
	if err != nil {
		p.opts.Logger.Debug("probe.interfaces.failed", "error", err.Error())
		return false
	}

	for _, a := range adapters {
		if a.Up && !a.Loopback && a.Type != "Tunnel" && len(a.Addrs) > 0 {
			return true
		}
	}

	return false
}

// AdapterInfo returns one line per interface, or an empty list on failure.
func (p *Prober) AdapterInfo(ctx context.Context) []string {
	adapters, err := p.opts.Interfaces.Interfaces(ctx)
	if err != nil {
		p.opts.Logger.Debug("probe.interfaces.failed", "error", err.Error())
		return []string{}
	}

	out := make([]string, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, a.String())
	}

	return out
}

// DNSResolvable reports whether hostname resolves to at least one address.
func (p *Prober) DNSResolvable(ctx context.Context, hostname string) bool {
	addrs, err := p.opts.Resolver.LookupIPAddr(ctx, hostname)
	return err == nil && len(addrs) > 0
}

// Traceroute probes the path to host with increasing TTL. Each entry is the
// address of the answering hop or "*" when the hop stayed silent. It stops
// at the destination or after MaxHops hops. An unresolvable host or a
// socket failure yields the hops collected so far (usually none).
func (p *Prober) Traceroute(ctx context.Context, host string) []string {
	hops := []string{}

	ip, err := p.resolve(ctx, host)
	if err != nil {
		p.opts.Logger.Debug("probe.traceroute.unresolved", "host", host, "error", err.Error())
		return hops
	}

	for ttl := 1; ttl <= p.opts.MaxHops; ttl++ {
		if ctx.Err() != nil {
			return hops
		}

		reply, err := p.opts.Pinger.Echo(ctx, ip, ttl, p.opts.HopTimeout)
		if err != nil {
			if ctx.Err() == nil && IsTimeout(err) {
				hops = append(hops, NoReply)
				continue
			}
			p.opts.Logger.Debug("probe.traceroute.failed", "host", host, "ttl", ttl, "error", err.Error())
			return hops
		}

		switch reply.Kind {
		case ReplyEcho:
			return append(hops, reply.Peer.String())
		case ReplyTimeExceeded:
			hops = append(hops, reply.Peer.String())
		default:
			hops = append(hops, NoReply)
		}
	}

	return hops
}

// resolve returns the first IPv4 address of host.
func (p *Prober) resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, &net.AddrError{Err: "not an IPv4 address", Addr: host}
	}

	addrs, err := p.opts.Resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}

	return nil, &net.DNSError{Err: "no IPv4 address", Name: host, IsNotFound: true}
}
