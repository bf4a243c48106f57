// Package dedup implements the disk-backed, primary-key deduplication
// index: a single-table SQLite database keyed on order_id.
//
// order_id is treated as an opaque string everywhere in this pipeline.
// The sample generator this spec was modeled on happens to emit
// ORD-NNNNN-shaped identifiers, but clean/transform and this index
// never parse or assume that shape.
//
// The index is, by design, unbounded and global-forever: it is never
// reset between runs, and this package performs no eviction or
// expiry. A deployment that needs bounded dedup history (e.g. "only
// dedup within the last N months") must prune the underlying SQLite
// file itself between logical epochs; the pipeline's own correctness
// contract (spec.md §4.4, P6) only requires that distinct order_ids
// seen across any run are deduplicated, and this is intentionally
// never silently bounded on our end.
package dedup
