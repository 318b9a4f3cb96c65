// Package worktime derives operational timing metrics from platform order
// payloads. Reconciliation is a pure algorithm: it never performs I/O, never
// branches on the provider, and is exercised in isolation by its tests. The
// alias tables mapping native status labels onto milestones are the only
// platform-facing variability and live here.
package worktime
