package cache

import (
	"log"
	"sync"

	"github.com/dgraph-io/ristretto"
)

var (
	once  sync.Once
	cache *ristretto.Cache
)

func Init() {
	once.Do(func() {
		c, err := New()
		if err != nil {
			log.Fatalf("cache.Init: err = %s", err)
		}
		cache = c
	})
}

func New() (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 22,
		BufferItems: 64,
	})
}

func Cache() *ristretto.Cache {
	return cache
}
