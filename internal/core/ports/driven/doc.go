// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Backend: Remote persistence of highlights, annotations and chat
//   - Authenticator: Sign-in against the hosted auth service
//   - CredentialsStore: Signed-in session persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - OutboxStore: Failed persistence calls are only logged without it.
//   - FallbackResponder: A fixed reply is used without it.
//   - LLMService: Only needed by the LLM-backed FallbackResponder.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
