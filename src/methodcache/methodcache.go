package methodcache

import (
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of applications remembered.
const DefaultSize = 100

// Outcome records which text extraction method last worked for an application.
type Outcome uint8

const (
	PreferAccessibility Outcome = iota
	PreferClipboardScript
)

func (o Outcome) String() string {
	switch o {
	case PreferAccessibility:
		return "accessibility"
	case PreferClipboardScript:
		return "clipboard-script"
	default:
		return "unknown"
	}
}

// Entry is one remembered application.
type Entry struct {
	AppName string  `json:"app_name"`
	Outcome Outcome `json:"outcome"`
}

// Cache is a bounded, least-recently-used map from application name to Outcome.
// A missing key means no method has worked for the application yet.
type Cache struct {
	lru *lru.Cache[string, Outcome]
}

// New creates a cache holding at most size applications. size <= 0 means DefaultSize.
func New(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.NewWithEvict[string, Outcome](size, func(app string, o Outcome) {
		log.Printf("methodcache: evicted %q (%s)", app, o)
	})
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the outcome for app and marks it most recently used.
func (c *Cache) Get(app string) (Outcome, bool) {
	return c.lru.Get(app)
}

// Put records o for app, evicting the least recently used entry when full.
func (c *Cache) Put(app string, o Outcome) {
	c.lru.Add(app, o)
}

func (c *Cache) Len() int { return c.lru.Len() }

// Purge forgets every application.
func (c *Cache) Purge() { c.lru.Purge() }

// Snapshot lists the entries from least to most recently used without touching recency.
func (c *Cache) Snapshot() []Entry {
	keys := c.lru.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if o, ok := c.lru.Peek(k); ok {
			entries = append(entries, Entry{AppName: k, Outcome: o})
		}
	}
	return entries
}

// Describe renders entries as "App=outcome" pairs for diagnostics.
func Describe(entries []Entry) string {
	if len(entries) == 0 {
		return "none"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.AppName + "=" + e.Outcome.String()
	}
	return strings.Join(parts, ", ")
}
