package preview

import (
	"container/list"
	"errors"
	"sync"
)

// ErrItemTooLarge is returned when a preview exceeds the store capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// StoreStats holds store performance metrics.
type StoreStats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	Items     int   // Number of previews held
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s StoreStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Store is an in-memory LRU of downloaded preview files.
type Store struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats StoreStats
}

type storeEntry struct {
	url  string
	data []byte
}

// NewStore creates a store holding at most capacity bytes.
func NewStore(capacity int64) *Store {
	return &Store{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the stored bytes for url and marks them recently used.
func (s *Store) Get(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[url]
	if !ok {
		s.stats.Misses++
		return nil, false
	}

	s.eviction.MoveToFront(elem)
	s.stats.Hits++
	return elem.Value.(*storeEntry).data, true
}

// Put stores data for url, evicting least recently used previews to make
// room.
func (s *Store) Put(url string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(data))
	if n > s.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := s.items[url]; ok {
		s.removeElement(elem)
	}

	for s.size+n > s.capacity && s.eviction.Len() > 0 {
		s.removeElement(s.eviction.Back())
		s.stats.Evictions++
	}

	s.items[url] = s.eviction.PushFront(&storeEntry{
		url:  url,
		data: data,
	})
	s.size += n
	return nil
}

// Size returns the number of bytes held.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stats returns store statistics.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Capacity = s.capacity
	stats.Size = s.size
	stats.Items = len(s.items)
	return stats
}

// removeElement must be called with the lock held.
func (s *Store) removeElement(elem *list.Element) {
	s.eviction.Remove(elem)
	entry := elem.Value.(*storeEntry)
	delete(s.items, entry.url)
	s.size -= int64(len(entry.data))
}
