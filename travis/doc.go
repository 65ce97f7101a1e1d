// Package travis reads build results from the Travis CI v3 API.
//
// Branch lookups are cached briefly since a push can start a new build at
// any time. Job listings of finished builds are cached for an hour; listings
// of builds still running are never retained.
package travis
