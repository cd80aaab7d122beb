// Package server exposes the scheduling flow over HTTP: the guest login and
// OAuth callback endpoints, the availability and booking API, health probes,
// and a dedicated Prometheus metrics listener.
package server
