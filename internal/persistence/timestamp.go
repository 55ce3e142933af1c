package persistence

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// millis stores a time as integer Unix milliseconds. The zero time is
// written as NULL, and NULL or non-positive values scan back to it.
type millis struct {
	time.Time
}

func (m millis) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}

	return m.UnixMilli(), nil
}

func (m *millis) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		m.Time = time.Time{}
	case int64:
		if v <= 0 {
			m.Time = time.Time{}

			return nil
		}
		m.Time = time.UnixMilli(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported column type %T", src)
	}

	return nil
}
