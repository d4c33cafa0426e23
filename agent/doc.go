// Package agent contains the role-scoped conversational participants of a
// troubleshooting group chat.
//
// An Agent turns the visible transcript into exactly one new message. The
// model backed implementation, ModelAgent, builds a model request from its
// fixed role instructions plus the transcript, executes any capability calls
// the model asks for through its own tool.Toolset and returns the final
// answer. Capabilities outside that toolset are rejected and the model is
// told so; nothing outside the allow-list is ever executed.
//
// Roles names the four participants (Analyst, Network, Common, Resolver).
// Instructions are rendered as text/template against Roles so prompts can
// refer to the other participants as {{.Analyst}} or {{.Resolver}}.
//
// The Resolver answers with a JSON verdict {"approved": bool, "solution":
// string}. ParseVerdict extracts it; anything that does not match the schema
// degrades to a message without payload instead of an error.
package agent
