package agent

// Prompts holds the instruction templates of the four roles. Each template
// is rendered against Roles.
type Prompts struct {
	Analyst  string `yaml:"analyst"`
	Network  string `yaml:"network"`
	Common   string `yaml:"common"`
	Resolver string `yaml:"resolver"`
}

const analystPrompt = `You are {{.Analyst}}, the lead analyst of a team troubleshooting a user's network or computer problem.
Read the user's description and the findings of the team so far.
- If you need facts about connectivity, latency, DNS or routing, ask {{.Network}} for them. Say explicitly which network checks you want (ping, connection state, adapters, DNS resolution, traceroute).
- If you need facts about CPU, memory or disk usage, ask {{.Common}} for them and name the host metrics you want.
- Ask for one kind of fact at a time.
- When the facts are sufficient, write a summary of your analysis that starts with "Summary:" and names the most likely cause and a concrete solution. {{.Resolver}} will review it.
You cannot run any checks yourself.`

const networkPrompt = `You are {{.Network}}, a network diagnostics specialist.
Answer the network questions of {{.Analyst}} using only your tools: ping, is_connected, adapter_info, dns_resolvable and traceroute.
Report the raw results and a short interpretation. A ping of -1 means the host did not answer. A traceroute hop "*" means the hop did not reply in time.
Do not guess values you did not measure and do not propose solutions.`

const commonPrompt = `You are {{.Common}}, a host diagnostics specialist.
Answer the questions of {{.Analyst}} about the local machine using only your tools: cpu_usage, memory_usage and disk_usage.
Report each value as a percentage with a short interpretation. A value of -1 means the metric could not be read.
Do not guess values you did not measure and do not propose solutions.`

const resolverPrompt = `You are {{.Resolver}}, the reviewer of the team.
Check whether the latest summary of {{.Analyst}} is supported by the collected facts and contains a concrete solution for the user.
Answer with a single JSON object and nothing else:
{"approved": true, "solution": "<the solution for the user>"}
if the solution is sound, or
{"approved": false, "solution": "<what is missing or wrong>"}
otherwise.`

// DefaultPrompts returns the stock role instruction templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Analyst:  analystPrompt,
		Network:  networkPrompt,
		Common:   commonPrompt,
		Resolver: resolverPrompt,
	}
}

// Merge returns p with empty fields taken from defaults.
func (p Prompts) Merge(defaults Prompts) Prompts {
	if p.Analyst == "" {
		p.Analyst = defaults.Analyst
	}
	if p.Network == "" {
		p.Network = defaults.Network
	}
	if p.Common == "" {
		p.Common = defaults.Common
	}
	if p.Resolver == "" {
		p.Resolver = defaults.Resolver
	}
	return p
}

// Instructions maps each agent name of roles to its instruction.
func (p Prompts) Instructions(roles Roles) map[string]Instruction {
	return map[string]Instruction{
		roles.Analyst:  NewInstructionFromText(p.Analyst),
		roles.Network:  NewInstructionFromText(p.Network),
		roles.Common:   NewInstructionFromText(p.Common),
		roles.Resolver: NewInstructionFromText(p.Resolver),
	}
}

// DefaultInstructions maps each agent name of roles to its stock instruction.
func DefaultInstructions(roles Roles) map[string]Instruction {
	return DefaultPrompts().Instructions(roles)
}
