package strategy

import (
	"context"
	"strings"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
)

var (
	summaryKeywords = []string{"summary", "in conclusion", "root cause", "recommended solution", "solution:"}
	networkKeywords = []string{
		"network", "ping", "latency", "dns", "resolve", "traceroute", "route", "hop",
		"connect", "adapter", "interface", "wifi", "wi-fi", "router", "gateway", "packet", "bandwidth",
	}
	hostKeywords = []string{
		"cpu", "processor", "memory", "ram", "disk", "storage", "host metric", "usage", "load",
	}
)

// KeywordDecider routes an Analyst message by keywords: summaries go to the
// Resolver, network questions to the Network role and host metric questions
// to the Common role. Text matching nothing goes to the Network role.
//
// It never fails and always answers with one of those three names, which
// makes it the fallback of Selection.
type KeywordDecider struct {
	roles agent.Roles
}

// NewKeywordDecider creates a KeywordDecider for roles.
func NewKeywordDecider(roles agent.Roles) *KeywordDecider {
	return &KeywordDecider{roles: roles}
}

// Decide implements Decider. Only the last message of window is inspected.
func (d *KeywordDecider) Decide(_ context.Context, _ string, window []core.Message) (string, error) {
	if len(window) == 0 {
		return d.roles.Network, nil
	}
	return d.Route(window[len(window)-1].Content), nil
}

// Route picks the next agent for an Analyst message body.
func (d *KeywordDecider) Route(text string) string {
	lower := strings.ToLower(text)

	if containsAny(lower, summaryKeywords) {
		return d.roles.Resolver
	}

	network := countAny(lower, networkKeywords)
	host := countAny(lower, hostKeywords)

	if host > network {
		return d.roles.Common
	}
	return d.roles.Network
}

func containsAny(s string, words []string) bool {
	return countAny(s, words) > 0
}

func countAny(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}
