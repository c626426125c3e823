package calendarclient

import (
	"sync"

	"fieldops-server/internal/domain"
)

// Cache holds the client's view of the visible date range: day rows by
// date and assignments by day id. It is safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	days        map[string]*domain.CalendarDay
	assignments map[string][]*domain.Assignment
	from, to    string
	stale       bool
}

func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.days = make(map[string]*domain.CalendarDay)
	c.assignments = make(map[string][]*domain.Assignment)
	c.stale = false
}

// Invalidate drops everything and forgets the loaded range.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.from, c.to = "", ""
}

// MarkStale flags the loaded range for reload on the next Refresh.
func (c *Cache) MarkStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

func (c *Cache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// Range returns the loaded range, or empty strings when nothing is loaded.
func (c *Cache) Range() (from, to string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.from, c.to
}

// DayID returns the id of the day row for date when it is cached.
func (c *Cache) DayID(date string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.days[date]; ok {
		return d.ID, true
	}
	return "", false
}

func (c *Cache) Day(date string) (*domain.CalendarDay, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.days[date]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

func (c *Cache) PutDay(day *domain.CalendarDay) {
	if day == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *day
	c.days[day.Day] = &cp
}

// Assignments returns a copy of the list cached for dayID.
func (c *Cache) Assignments(dayID string) []*domain.Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.assignments[dayID]
	out := make([]*domain.Assignment, len(list))
	for i, a := range list {
		cp := *a
		out[i] = &cp
	}
	return out
}

// PutAssignment inserts a or replaces the entry with the same id.
func (c *Cache) PutAssignment(a *domain.Assignment) {
	c.ReplaceAssignment(a.ID, a)
}

// ReplaceAssignment swaps the entry with id oldID for a, appending a to its
// day when oldID is not cached.
func (c *Cache) ReplaceAssignment(oldID string, a *domain.Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *a
	for dayID, list := range c.assignments {
		for i, existing := range list {
			if existing.ID != oldID {
				continue
			}
			if dayID == a.DayID {
				list[i] = &cp
				return
			}
			c.assignments[dayID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	c.assignments[a.DayID] = append(c.assignments[a.DayID], &cp)
}

func (c *Cache) Assignment(id string) (*domain.Assignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, list := range c.assignments {
		for _, a := range list {
			if a.ID == id {
				cp := *a
				return &cp, true
			}
		}
	}
	return nil, false
}

// Snapshot is a copy of every assignment list, used to undo a local change.
type Snapshot map[string][]*domain.Assignment

func (c *Cache) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(c.assignments))
	for dayID, list := range c.assignments {
		cp := make([]*domain.Assignment, len(list))
		for i, a := range list {
			v := *a
			cp[i] = &v
		}
		snap[dayID] = cp
	}
	return snap
}

// RemoveAssignment drops id from every list and returns the state before
// the removal.
func (c *Cache) RemoveAssignment(id string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshotLocked()
	for dayID, list := range c.assignments {
		kept := list[:0:0]
		for _, a := range list {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		c.assignments[dayID] = kept
	}
	return snap
}

func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignments = make(map[string][]*domain.Assignment, len(snap))
	for dayID, list := range snap {
		c.assignments[dayID] = list
	}
}

// Load replaces the cache with a freshly fetched range.
func (c *Cache) Load(resp *domain.RangeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.from, c.to = resp.From, resp.To
	for _, view := range resp.Days {
		if view.Day == nil {
			continue
		}
		d := *view.Day
		c.days[d.Day] = &d
		list := make([]*domain.Assignment, 0, len(view.Assignments))
		for _, a := range view.Assignments {
			cp := *a
			list = append(list, &cp)
		}
		c.assignments[d.ID] = list
	}
}
