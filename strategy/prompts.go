package strategy

// DefaultSelectionPrompt is rendered against agent.Roles.
const DefaultSelectionPrompt = `Determine which participant takes the next turn in a troubleshooting conversation based on the most recent message.
State only the name of the participant to take the next turn, with no explanation.

Choose only from these participants:
- {{.Network}}
- {{.Common}}
- {{.Resolver}}

Rules:
- If {{.Analyst}} asks for network facts (connectivity, latency, DNS, adapters, routing), it is {{.Network}}'s turn.
- If {{.Analyst}} asks for host metrics (CPU, memory, disk), it is {{.Common}}'s turn.
- If {{.Analyst}} presents a completed summary of the analysis, it is {{.Resolver}}'s turn.`

// DefaultTerminationPrompt is rendered against agent.Roles.
const DefaultTerminationPrompt = `Decide whether {{.Resolver}} approved the proposed solution in the most recent message.
If the solution was approved, respond with the single word: approved
Otherwise respond with the single word: continue`
