// Package strategy decides who speaks next in a troubleshooting group chat
// and when a turn is over.
//
// Both strategies delegate the judgement to a pluggable Decider (usually a
// ModelDecider) and guard it with fixed rules:
//
//   - Selection routes user, specialist and Resolver messages back to the
//     Analyst without asking the decider. Only Analyst messages are routed
//     by the decider, among Network, Common and Resolver. Unusable decider
//     output falls back to KeywordDecider. The selected agent never equals
//     the author of the last message.
//   - Termination stops at the iteration ceiling, and otherwise only ever
//     considers messages authored by the Resolver. An approved verdict
//     payload ends the turn; anything else continues it.
package strategy
