package network

import (
	"context"

	"github.com/hupe1980/triage/tool"
)

// Capability names exposed to agents.
const (
	ToolPing          = "ping"
	ToolIsConnected   = "is_connected"
	ToolAdapterInfo   = "adapter_info"
	ToolDNSResolvable = "dns_resolvable"
	ToolTraceroute    = "traceroute"
)

type hostArgs struct {
	Host string `json:"host" description:"Host name or IPv4 address"`
}

// Tools exposes the prober as capabilities.
func Tools(p *Prober) []tool.Tool {
	host := func(args map[string]any) string {
		s, _ := args["host"].(string)
		return s
	}

	return []tool.Tool{
		mustStructTool(ToolPing,
			"Pings a host and returns the round trip time in milliseconds, or -1 if the host did not answer",
			func(ctx context.Context, args map[string]any) (any, error) {
				return p.Ping(ctx, host(args)), nil
			}),
		tool.MustFunctionTool(ToolIsConnected,
			"Returns whether a network connection is available",
			nil,
			func(ctx context.Context, _ map[string]any) (any, error) {
				return p.IsConnected(ctx), nil
			}),
		tool.MustFunctionTool(ToolAdapterInfo,
			"Returns information about the network adapters (name, type, status)",
			nil,
			func(ctx context.Context, _ map[string]any) (any, error) {
				return p.AdapterInfo(ctx), nil
			}),
		mustStructTool(ToolDNSResolvable,
			"Returns whether a host name can be resolved",
			func(ctx context.Context, args map[string]any) (any, error) {
				return p.DNSResolvable(ctx, host(args)), nil
			}),
		mustStructTool(ToolTraceroute,
			"Performs a traceroute to a host and returns one entry per hop (IP address or * when the hop did not answer)",
			func(ctx context.Context, args map[string]any) (any, error) {
				return p.Traceroute(ctx, host(args)), nil
			}),
	}
}

func mustStructTool(name, description string, fn func(ctx context.Context, args map[string]any) (any, error)) tool.Tool {
	t, err := tool.NewFunctionToolFromStruct(name, description, hostArgs{}, fn)
	if err != nil {
		panic(err)
	}
	return t
}
