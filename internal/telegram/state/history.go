// Package state keeps per-chat bot state between messages.
package state

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Exchange is one answered question.
type Exchange struct {
	Question string
	Answer   string
	AskedAt  time.Time
}

// History keeps the latest exchanges of every chat in memory. A chat's
// history expires after ttl without new questions. A nil *History records
// nothing.
type History struct {
	mu    sync.Mutex
	cache *cache.Cache
	size  int
}

func NewHistory(size int, ttl time.Duration) *History {
	if size <= 0 {
		return nil
	}
	return &History{
		cache: cache.New(ttl, 2*ttl),
		size:  size,
	}
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Append records ex and drops the oldest exchanges beyond the size limit.
func (h *History) Append(chatID int64, ex Exchange) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var list []Exchange
	if v, ok := h.cache.Get(key(chatID)); ok {
		list = v.([]Exchange)
	}
	list = append(list, ex)
	if len(list) > h.size {
		list = list[len(list)-h.size:]
	}
	h.cache.SetDefault(key(chatID), append([]Exchange(nil), list...))
}

// Recent returns the chat's exchanges, oldest first.
func (h *History) Recent(chatID int64) []Exchange {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.cache.Get(key(chatID))
	if !ok {
		return nil
	}
	return append([]Exchange(nil), v.([]Exchange)...)
}

func (h *History) Clear(chatID int64) {
	if h == nil {
		return
	}
	h.cache.Delete(key(chatID))
}
