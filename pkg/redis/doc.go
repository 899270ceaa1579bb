// Package redis wires Redis connectivity: client construction with retrying
// ping, a readiness probe, and a distributed per-key lock used to serialize
// webhook processing for a subscriber across application instances.
package redis
