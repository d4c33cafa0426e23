package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Default participant names.
const (
	DefaultAnalyst  = "Analyst"
	DefaultNetwork  = "NetworkAgent"
	DefaultCommon   = "CommonAgent"
	DefaultResolver = "Resolver"
)

// Roles maps the four troubleshooting roles to agent identities.
type Roles struct {
	Analyst  string `yaml:"analyst" json:"analyst"`
	Network  string `yaml:"network" json:"network"`
	Common   string `yaml:"common" json:"common"`
	Resolver string `yaml:"resolver" json:"resolver"`
}

// DefaultRoles returns the stock roster.
func DefaultRoles() Roles {
	return Roles{
		Analyst:  DefaultAnalyst,
		Network:  DefaultNetwork,
		Common:   DefaultCommon,
		Resolver: DefaultResolver,
	}
}

// ErrInvalidRoles is returned by Validate.
var ErrInvalidRoles = errors.New("invalid roles")

// Validate checks that every role is named and that no two roles share a name.
func (r Roles) Validate() error {
	seen := make(map[string]string, 4)
	for _, kv := range [][2]string{
		{"analyst", r.Analyst},
		{"network", r.Network},
		{"common", r.Common},
		{"resolver", r.Resolver},
	} {
		name := strings.TrimSpace(kv[1])
		if name == "" {
			return fmt.Errorf("%w: %s role has no name", ErrInvalidRoles, kv[0])
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q used for %s and %s", ErrInvalidRoles, name, other, kv[0])
		}
		seen[name] = kv[0]
	}
	return nil
}

// Names returns the agent names in roster order.
func (r Roles) Names() []string {
	return []string{r.Analyst, r.Network, r.Common, r.Resolver}
}

// Contains reports whether name is one of the roster's agents.
func (r Roles) Contains(name string) bool {
	for _, n := range r.Names() {
		if n == name {
			return true
		}
	}
	return false
}
