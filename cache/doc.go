// Package cache deduplicates and memoizes outbound upstream calls.
//
// A Memo collapses concurrent calls for the same FetchKey into one in-flight
// action, retains successful results for a TTL chosen after the value
// resolves, and never retains failures. Entries live in a Store; MemoryStore
// expires them lazily on read.
package cache
