package internal

import "time"

// counterKey is the store key for the daily request counter.
const counterKey = "requestsToday"

// counterDateFormat is the human-readable day stamp persisted alongside
// the count, e.g. "Mon Jan 01 2024".
const counterDateFormat = "Mon Jan 02 2006"

// requestCounter is the persisted shape of the counter.
type requestCounter struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// RequestCounter tracks how many questions were sent today. The count
// resets whenever the stored date stamp differs from the current day.
type RequestCounter struct {
	store Store
	now   func() time.Time
}

// NewRequestCounter creates a counter backed by store.
func NewRequestCounter(store Store) *RequestCounter {
	return &RequestCounter{store: store, now: time.Now}
}

// load reads the stored counter, resetting it if the stored date is not
// today. The reset is persisted before any increment happens.
func (c *RequestCounter) load() requestCounter {
	today := c.now().Format(counterDateFormat)

	var rc requestCounter
	if !getJSON(c.store, counterKey, &rc) || rc.Date != today {
		rc = requestCounter{Count: 0, Date: today}
		if err := setJSON(c.store, counterKey, rc); err != nil {
			LogWarn("failed to reset request counter: %v", err)
		}
	}
	return rc
}

// Today returns the number of requests sent today.
func (c *RequestCounter) Today() int {
	return c.load().Count
}

// Increment bumps today's count and returns the new value.
func (c *RequestCounter) Increment() int {
	rc := c.load()
	rc.Count++
	if err := setJSON(c.store, counterKey, rc); err != nil {
		LogWarn("failed to persist request counter: %v", err)
	}
	return rc.Count
}
