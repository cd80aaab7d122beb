// Package session tracks each guest's progress through the scheduling flow.
// A Session carries the guest's state machine, OAuth grant, and rendered
// availability list; the Manager owns the session map and expires idle
// sessions; the Coordinator drives the transitions between states.
package session
