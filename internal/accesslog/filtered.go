package accesslog

// Filtered wraps an AccessLog behind an on/off switch, letting the
// dashboard's logging toggle silence recording without touching readers.
type Filtered struct {
	inner   *AccessLog
	enabled func() bool
}

// NewFiltered creates a recorder that consults enabled before each write.
func NewFiltered(inner *AccessLog, enabled func() bool) *Filtered {
	return &Filtered{inner: inner, enabled: enabled}
}

// Record writes the entry unless recording is switched off.
func (f *Filtered) Record(action, identifier, details, userAgent string) error {
	if !f.enabled() {
		return nil
	}
	return f.inner.Record(action, identifier, details, userAgent)
}
