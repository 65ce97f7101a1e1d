// Package secret resolves credentials referenced from configuration.
//
// Values of the form "secretref:<provider>:<ref>" are looked up through a
// registered Provider; any other value is returned after strict
// environment expansion. Two providers are built in:
//
//	secretref:env:SAUCE_ACCESS_KEY      environment variable
//	secretref:file:sauce-access-key     file under a directory, e.g. /run/secrets
//
// A Resolver may memoize lookups through a cache.Memo, so a failed lookup
// is retried on the next request instead of being remembered.
package secret
