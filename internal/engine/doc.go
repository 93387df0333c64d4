// Package engine is the gateway's narrow view of the Zeebe process engine.
//
// Client exposes the four primitives the gateway relies on: starting a process
// instance, starting one and awaiting its result, leasing (activating) jobs as a
// long-poll stream of batches, and completing a leased job. Every failure is an
// *Error carrying a Code, so callers can translate outcomes without knowing the
// transport. ZeebeClient implements Client over the gateway's gRPC API.
package engine
