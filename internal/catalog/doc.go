// Package catalog is a small client for the iTunes Search API. It builds the
// request URLs that double as search cache keys, fetches and decodes
// responses, and filters results down to purchasable song tracks.
package catalog
