// Package groupchat runs the troubleshooting conversation: a user message
// starts a turn, the selection strategy picks the next agent, the agent
// answers, the answer is appended to the shared transcript and the
// termination strategy decides whether the turn is over.
//
// Agents act strictly one after another. Every appended message is
// delivered on the event channel as soon as it exists, so callers can show
// progress before the turn concludes. A backend failure or cancellation
// aborts only the current turn; the session stays usable for the next input.
//
// Example:
//
//	chat, err := groupchat.New(core.NewSession(), roles, agents, selection, termination)
//	if err != nil {
//		return err
//	}
//
//	_, events, errs, err := chat.Run(ctx, "my video is choppy")
//	for ev := range events {
//		if ev.Type == groupchat.EventMessage {
//			fmt.Printf("%s: %s\n", ev.Message.Author, ev.Message.Content)
//		}
//	}
//	if err := <-errs; err != nil {
//		return err
//	}
package groupchat
