package network

import (
	"context"
	"fmt"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// Adapter describes one network interface.
type Adapter struct {
	Name     string
	Type     string
	Up       bool
	Loopback bool
	Addrs    []string
}

// String renders the adapter as "Name: <n>, Type: <t>, Status: <Up|Down>".
func (a Adapter) String() string {
	status := "Down"
	if a.Up {
		status = "Up"
	}
	return fmt.Sprintf("Name: %s, Type: %s, Status: %s", a.Name, a.Type, status)
}

// InterfaceSource lists the host's network interfaces.
type InterfaceSource interface {
	Interfaces(ctx context.Context) ([]Adapter, error)
}

// InterfaceSourceFunc adapts a function to InterfaceSource.
type InterfaceSourceFunc func(ctx context.Context) ([]Adapter, error)

// Interfaces implements InterfaceSource.
func (f InterfaceSourceFunc) Interfaces(ctx context.Context) ([]Adapter, error) { return f(ctx) }

// SystemInterfaces reads interfaces through gopsutil.
type SystemInterfaces struct{}

// Interfaces implements InterfaceSource.
func (SystemInterfaces) Interfaces(ctx context.Context) ([]Adapter, error) {
	stats, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	adapters := make([]Adapter, 0, len(stats))
	for _, st := range stats {
		a := Adapter{
			Name:     st.Name,
			Up:       hasFlag(st.Flags, "up"),
			Loopback: hasFlag(st.Flags, "loopback"),
		}
		for _, addr := range st.Addrs {
			a.Addrs = append(a.Addrs, addr.Addr)
		}
		a.Type = adapterType(st.Name, st.HardwareAddr, st.Flags)
		adapters = append(adapters, a)
	}

	return adapters, nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// adapterType maps interface properties onto the coarse type names the
// agents' prompts use.
func adapterType(name, hwAddr string, flags []string) string {
	lower := strings.ToLower(name)

	switch {
	case hasFlag(flags, "loopback"):
		return "Loopback"
	case hasFlag(flags, "pointtopoint"),
		strings.HasPrefix(lower, "tun"),
		strings.HasPrefix(lower, "wg"),
		strings.HasPrefix(lower, "utun"):
		return "Tunnel"
	case strings.HasPrefix(lower, "wl"),
		strings.Contains(lower, "wi-fi"),
		strings.Contains(lower, "wireless"):
		return "Wireless80211"
	case hwAddr == "":
		return "Unknown"
	default:
		return "Ethernet"
	}
}
