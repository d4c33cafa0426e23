package triage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/model"
	"github.com/hupe1980/triage/probe/host"
	"github.com/hupe1980/triage/probe/network"
	"github.com/hupe1980/triage/strategy"
)

// NewOfflineModel returns the model of the "mock" provider. It plays every
// role without a backend so the chat, the probes and the console can be
// exercised offline:
//
//   - the network and host specialists call their tools and report the results
//   - the analyst asks the specialist matching the user's words, then summarizes
//   - the resolver approves the latest summary
//
// Roles are recognized by their tools or by the "You are <name>" opening of
// the stock prompts. Any other request, such as a decider prompt, gets an
// empty answer.
func NewOfflineModel(roles agent.Roles) *model.MockModel {
	o := &offline{roles: roles, router: strategy.NewKeywordDecider(roles)}
	return model.NewMockModel("offline", "mock").WithHandler(o.answer)
}

type offline struct {
	roles  agent.Roles
	router *strategy.KeywordDecider
}

func (o *offline) answer(req model.Request) (core.Content, error) {
	switch {
	case hasTool(req, network.ToolIsConnected):
		return o.specialist(req, network.ToolIsConnected, network.ToolAdapterInfo), nil
	case hasTool(req, host.ToolCPUUsage):
		return o.specialist(req, host.ToolCPUUsage, host.ToolMemoryUsage, host.ToolDiskUsage), nil
	case strings.HasPrefix(req.Instructions, "You are "+o.roles.Resolver):
		return o.resolver(req)
	case strings.HasPrefix(req.Instructions, "You are "+o.roles.Analyst):
		return text(o.analyst(req)), nil
	default:
		return text(""), nil
	}
}

// specialist calls every tool once, then reports the results.
func (o *offline) specialist(req model.Request, tools ...string) core.Content {
	if len(req.Contents) > 0 {
		if results := req.Contents[len(req.Contents)-1].FunctionResponses(); len(results) > 0 {
			lines := make([]string, 0, len(results))
			for _, r := range results {
				if r.Error != "" {
					lines = append(lines, fmt.Sprintf("%s failed: %s", r.Name, r.Error))
					continue
				}
				lines = append(lines, fmt.Sprintf("%s: %v", r.Name, r.Response))
			}
			return text("Measured results:\n" + strings.Join(lines, "\n"))
		}
	}

	parts := make([]core.Part, 0, len(tools))
	for _, name := range tools {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        core.NewID(),
			Name:      name,
			Arguments: "{}",
		}})
	}
	return core.Content{Role: core.ContentRoleAssistant, Parts: parts}
}

func (o *offline) analyst(req model.Request) string {
	last := req.LastText()

	for _, specialist := range []string{o.roles.Network, o.roles.Common} {
		if report, ok := strings.CutPrefix(last, "["+specialist+"] "); ok {
			return fmt.Sprintf("Summary: %s reported the following.\n%s\nSolution: fix the component whose value is out of range and retry.",
				specialist, report)
		}
	}

	if strings.HasPrefix(last, "["+o.roles.Resolver+"] ") {
		return fmt.Sprintf("%s, please check the connection state and the adapters again.", o.roles.Network)
	}

	if o.router.Route(last) == o.roles.Common {
		return fmt.Sprintf("%s, please report the cpu, memory and disk usage of this machine.", o.roles.Common)
	}
	return fmt.Sprintf("%s, please check the connection state and the network adapters.", o.roles.Network)
}

func (o *offline) resolver(req model.Request) (core.Content, error) {
	solution := req.LastText()
	if _, after, ok := strings.Cut(solution, "Solution:"); ok {
		solution = strings.TrimSpace(after)
	}

	b, err := json.Marshal(core.Verdict{Approved: true, Solution: solution})
	if err != nil {
		return core.Content{}, err
	}
	return text(string(b)), nil
}

func hasTool(req model.Request, name string) bool {
	for _, t := range req.Tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}

func text(s string) core.Content {
	return core.NewTextContent(core.ContentRoleAssistant, s)
}
