// Package model defines the provider-agnostic abstractions for calling
// language models from triage agents and strategies.
//
// Core goals:
//   - One Generate contract for every provider, returning whole messages
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic mocking for tests (MockModel)
//   - Fail fast when a provider keeps failing (Breaker)
//
// Providers (Azure OpenAI, OpenAI, Anthropic) implement Model in sub-packages
// so agents and strategies stay decoupled from vendor SDKs.
package model
