package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"authgate.io/internal/ids"
	"authgate.io/internal/obs"
)

// Recorder appends audit records to the durable store and mirrors each one
// as a structured JSON log line.
type Recorder struct {
	store AuditStore
	now   func() time.Time
}

// RecorderOption configures Recorder behavior.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the time source (useful for tests).
func WithRecorderClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given audit store.
func NewRecorder(store AuditStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record assigns identity and timestamp to the record, appends it durably
// and emits the audit log line. The store write happens before the caller's
// own operation completes; callers on failure paths must not let a Record
// error mask the original authentication failure.
func (r *Recorder) Record(ctx context.Context, rec *AuditRecord) error {
	if rec == nil {
		return errors.New("audit record is required")
	}
	if rec.Action == "" {
		return errors.New("audit action is required")
	}
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	r.logLine(rec)
	if err := r.store.Append(ctx, rec); err != nil {
		return err
	}
	return nil
}

func (r *Recorder) logLine(rec *AuditRecord) {
	entry := map[string]any{
		"ts":     rec.Timestamp.Format(time.RFC3339Nano),
		"type":   "audit",
		"action": rec.Action,
		"status": rec.Status,
	}
	if rec.UserID != "" {
		entry["user_id"] = rec.UserID
	}
	if rec.UserEmail != "" {
		entry["user_email"] = rec.UserEmail
	}
	if rec.OrganizationID != "" {
		entry["organization_id"] = rec.OrganizationID
	}
	if rec.IPAddress != "" {
		entry["ip"] = rec.IPAddress
	}
	if rec.ErrorMessage != "" {
		entry["error"] = rec.ErrorMessage
	}
	if len(rec.Details) > 0 {
		entry["details"] = rec.Details
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}
