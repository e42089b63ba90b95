// Package marketplace looks up product images on the sneaker marketplace.
//
// Pages fetches public product pages and matches the og:image tag plus any
// URLs on the image host. Catalog calls the authenticated REST API, where
// the image can sit under several keys depending on the endpoint, so every
// known key is tried and a missing one is not an error.
package marketplace
