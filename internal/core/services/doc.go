// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The document session keeps every collection in memory and mutates it
// synchronously; backend calls run in the background and never roll local
// state back.
package services
