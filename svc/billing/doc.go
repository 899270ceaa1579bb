// Package billing is the composition root for the billing engine. It wires
// configuration, subscriber storage (postgres, mongo or in-memory), the
// per-subscriber webhook lock (redis or in-process), the Paystack client,
// notifications and the plan catalog into a runnable HTTP service with a
// background maintenance sweeper.
package billing
