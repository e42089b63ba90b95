// Package tokenstore resolves catalog credentials.
//
// A bearer token is read from a PostgREST-style data store using a service
// key: the first row of GET /rest/v1/{table}?select={field}&limit=1. It is
// paired with a static API key to form the catalog authorization headers.
// Resolved tokens can be cached in memory for a configurable TTL; there is
// no refresh on expiry.
package tokenstore
