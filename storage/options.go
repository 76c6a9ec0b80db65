package storage

import "github.com/Yarin78/morphy-sub004/cache"

type options struct {
	cacheSize       int
	headerExtension int32
}

// Option configures a file backend.
type Option func(*options)

// WithCacheSize sets how many decoded records the file backend keeps in memory.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithHeaderExtension reserves n extra header bytes when creating a file. Readers
// skip them, so newer writers can grow the header without breaking older readers.
func WithHeaderExtension(n int) Option {
	return func(o *options) { o.headerExtension = int32(n) }
}

func buildOptions(opts []Option) options {
	o := options{cacheSize: cache.DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
