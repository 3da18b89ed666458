// Package domain defines the core business entities for marginalia.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Highlight: A text or area selection anchored to a page of a paper
//   - Annotation: A note, optionally linked to a Highlight
//   - ChatMessage: One turn of an assistant conversation about a paper
//   - OutboxEntry: A persistence call that failed and awaits replay
//   - Credentials: The signed-in session for the backend
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
