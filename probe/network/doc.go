// Package network implements the read-only network diagnostics offered to
// the network agent: ping, connectivity, adapter listing, DNS resolution and
// traceroute.
//
// Every probe reports failure through a sentinel value (-1, false, "*" or an
// empty list) instead of an error, so agents can reason about an unreachable
// host as a fact. Probes are IPv4 only.
package network
