// Package integration contains the Integration bounded context.
// This context manages connections to external delivery and order-taking
// platforms (marketplaces, POS networks, logistics carriers).
//
// Key concepts:
//   - PlatformAdapter: port interface every platform implementation satisfies,
//     extended by the SalesAdapter and LogisticsAdapter capability profiles
//   - OrderIngestor: optional capability for platforms whose raw payloads are
//     staged in the inbox and processed idempotently
//   - NormalizedOrder: platform-agnostic value object produced by adapters
//   - Integration: one configured connection between a cost center and a platform
//   - Registry: explicit provider -> adapter factory mapping
//
// The ports live here in the domain layer; the platform implementations
// live under internal/infrastructure/platforms and are wired through the
// registry at startup.
package integration
