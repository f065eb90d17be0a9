package dispatch

import (
	"encoding/json"
	"sync"
	"time"
)

// Entry is a cached sensor value.
type Entry struct {
	// Topic is the MQTT topic the value arrived on.
	Topic string `json:"topic"`

	// Data is the payload. JSON payloads are kept as-is; anything else
	// is wrapped as a JSON string so the cache always serialises.
	Data json.RawMessage `json:"data"`

	// ReceivedAt is when the value arrived.
	ReceivedAt time.Time `json:"received_at"`
}

// Cache holds the latest value seen on each topic.
//
// It backs the GET /api/sensors endpoint so new dashboard clients get
// current values immediately instead of waiting for the next publish.
//
// All methods are thread-safe.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Set stores the latest payload for a topic.
func (c *Cache) Set(topic string, payload []byte) {
	data := normaliseJSON(payload)

	c.mu.Lock()
	c.entries[topic] = Entry{
		Topic:      topic,
		Data:       data,
		ReceivedAt: time.Now(),
	}
	c.mu.Unlock()
}

// Get returns the cached entry for a topic.
func (c *Cache) Get(topic string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[topic]
	return entry, ok
}

// Snapshot returns a copy of all cached entries keyed by topic.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]Entry, len(c.entries))
	for topic, entry := range c.entries {
		snapshot[topic] = entry
	}
	return snapshot
}

// Len returns the number of cached topics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// normaliseJSON returns the payload as valid JSON. Non-JSON payloads
// are encoded as a JSON string.
func normaliseJSON(payload []byte) json.RawMessage {
	if json.Valid(payload) {
		data := make(json.RawMessage, len(payload))
		copy(data, payload)
		return data
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		return json.RawMessage(`null`)
	}
	return encoded
}
