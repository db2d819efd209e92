package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"authgate.io/internal/obs"
)

func TestRecorderFillsIdentity(t *testing.T) {
	store := &fakeAudit{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(store, WithRecorderClock(func() time.Time { return now }))

	record := &AuditRecord{Action: ActionLogin, UserID: "user-1"}
	if err := rec.Record(context.Background(), record); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.ID == "" {
		t.Fatal("expected generated id")
	}
	if !record.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v", record.Timestamp)
	}
	if record.Status != StatusSuccess {
		t.Fatalf("status = %q", record.Status)
	}
	if len(store.all()) != 1 {
		t.Fatal("expected durable append")
	}
}

func TestRecorderRejectsMissingAction(t *testing.T) {
	rec := NewRecorder(&fakeAudit{})
	if err := rec.Record(context.Background(), &AuditRecord{}); err == nil {
		t.Fatal("expected error for missing action")
	}
	if err := rec.Record(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

func TestRecorderEmitsLogLine(t *testing.T) {
	logger := obs.Logger()
	orig := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)

	rec := NewRecorder(&fakeAudit{})
	err := rec.Record(context.Background(), &AuditRecord{
		Action:         ActionLoginFailed,
		UserEmail:      "dev@acme.test",
		OrganizationID: "org-1",
		IPAddress:      "10.0.0.5",
		Status:         StatusFailed,
		ErrorMessage:   "invalid email or password",
		Details:        map[string]any{"reason": ReasonInvalidCredentials},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	if entry["type"] != "audit" || entry["action"] != string(ActionLoginFailed) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["status"] != StatusFailed || entry["ip"] != "10.0.0.5" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	details, ok := entry["details"].(map[string]any)
	if !ok || details["reason"] != ReasonInvalidCredentials {
		t.Fatalf("details = %v", entry["details"])
	}
}

func TestRecorderPropagatesAppendError(t *testing.T) {
	rec := NewRecorder(failingAudit{})
	err := rec.Record(context.Background(), &AuditRecord{Action: ActionLogout})
	if err == nil {
		t.Fatal("expected append error to propagate")
	}
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, *AuditRecord) error {
	return errors.New("store down")
}
