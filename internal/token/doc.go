// Package token keeps calendar connection credentials usable.
//
// Manager returns a non-expired access token for a connection, refreshing it
// with the provider's OAuth2 token endpoint (grant_type=refresh_token) when the
// stored expiry has passed, and persisting the result through a Writer.
//
// Session memoizes those lookups for the lifetime of one request so that
// concurrent calendar fetches on the same connection refresh at most once.
// A Session must never outlive the request that created it.
package token
