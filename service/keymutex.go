package service

import (
	"hash/fnv"
	"sync"
)

// keyMutex serializes message processing per (chat, user) key so that the
// state read-modify-write cycle cannot lose updates when the same user
// sends messages concurrently. Sharded to bound memory.
type keyMutex struct {
	shards [64]sync.Mutex
}

func (k *keyMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.shards[h.Sum32()%uint32(len(k.shards))]
	m.Lock()
	return m.Unlock
}
