// Package schedule implements the availability aggregation and booking core.
//
// The aggregator walks the remaining weekdays of the current week, queries a
// calendar provider for slots where both the host and the guest are free, and
// renders each slot into a canonical display string. The parser is the exact
// inverse of that formatter and turns a selected display string back into the
// start/end instants the booking service submits to the provider.
package schedule
