package unfollower

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DateKeyLayout keys the daily counter by calendar date
const DateKeyLayout = "2006-01-02"

// DateKey returns the quota key for t
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// QuotaStore persists the per-day mutation counter
type QuotaStore interface {
	Count(ctx context.Context, date string) (int, error)
	Set(ctx context.Context, date string, n int) error
}

// ParseCount decodes a stored counter value. Empty means zero.
func ParseCount(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid quota value %q: %w", v, err)
	}
	return n, nil
}

// FormatCount encodes a counter value as a decimal string
func FormatCount(n int) string {
	return strconv.Itoa(n)
}

// MemoryQuota keeps counters in memory
type MemoryQuota struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryQuota returns an empty in-memory quota store
func NewMemoryQuota() *MemoryQuota {
	return &MemoryQuota{values: make(map[string]string)}
}

func (m *MemoryQuota) Count(ctx context.Context, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ParseCount(m.values[date])
}

func (m *MemoryQuota) Set(ctx context.Context, date string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[date] = FormatCount(n)
	return nil
}

// Raw returns the stored string for date
func (m *MemoryQuota) Raw(date string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[date]
}
