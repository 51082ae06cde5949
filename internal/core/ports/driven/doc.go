// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - KVStore: Rate windows, advisory locks, cache entries, namespace counter
//   - ConfigStore: Application configuration
//   - ChatClient: LLM chat completions with retry and classification
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EventLog: Per-request analytics. Without it, events are only logged.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
