// Package mongo wires MongoDB connectivity: client construction with
// retrying ping and a readiness probe for the HTTP health endpoint.
package mongo
