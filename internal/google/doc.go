// Package google handles guest authentication against Google: building the
// hosted auth URL, exchanging an authorization code for a Grant, and
// revoking the grant on logout.
package google
