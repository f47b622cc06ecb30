// Package blob archives raw source documents so an ingested version can
// always be traced back to the text it came from.
package blob

import "context"

// Store persists a blob under a key and returns a URL that locates it.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (url string, err error)
}
