// Package fetch performs upstream HTTP calls for badge sources.
//
// Every call goes through a resilience.Guard and, for cached calls, through
// a cache.Memo keyed by method, URL, query, mode and compression variant.
// Size probes answer "how many bytes is this file" with a cheap HEAD
// request first and fall back to downloading the body.
package fetch
