// Package core provides the foundational domain types shared by every other
// triage package. It defines:
//
//   - Messages (immutable transcript entries with role, author and an
//     optional structured Verdict payload)
//   - The Transcript (append-only, ordered history) and its read-only
//     History view handed to agents and strategies
//   - The Session (process-scoped loop state: transcript, iteration count,
//     completion flag and orchestrator state)
//   - Role based Content / Part values used as the working context of a
//     model call (text, function calls and function responses)
//
// The package keeps orchestration, model and capability concerns out of
// scope so that agents, strategies and the group chat depend only on these
// small value types.
package core
