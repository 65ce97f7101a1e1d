// Package auth guards the administrative endpoints of the badge service.
//
// Badge routes are public. Admin routes (cache statistics and purging)
// require an identity established by an API key or an HMAC-signed JWT, and
// an Authorizer that maps the identity's roles to permissions such as
// "cache:read" and "cache:purge".
package auth
