// Package catalog provides SQLite-backed storage for compiled statements.
//
// Every statement is content-addressed: its fingerprint is a domain-separated
// SHA-256 over the canonical JSON of its container and text, so recording the
// same statement twice is a no-op. Entries carry a UUIDv7 id and a logical
// sequence number; listings order by seq, never by wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - Single connection: one writer at a time
package catalog
