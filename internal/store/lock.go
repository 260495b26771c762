package store

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// KeyedMutex guards per-call-id critical sections. Read-modify-write against
// a session must never run as an unguarded get/put pair, so handlers take
// the id's lock for the whole turn. Sharding keeps distinct ids mostly
// independent without tracking every id ever seen.
type KeyedMutex struct {
	shards [lockShards]sync.Mutex
}

// NewKeyedMutex creates a sharded per-key mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock locks the shard owning key and returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	shard := &k.shards[shardFor(key)]
	shard.Lock()
	return shard.Unlock
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}
