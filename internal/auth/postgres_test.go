package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "role", "organization_id",
		"created_by", "last_login", "last_ip", "is_active", "created_at", "updated_at",
	})
}

func TestPGFindUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	lastLogin := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from users where email").
		WithArgs("dev@acme.test").
		WillReturnRows(userRows().AddRow(
			"user-1", "dev@acme.test", "hash", "Dev One", "developer", "org-1",
			nil, lastLogin, "10.0.0.5", true, time.Now(), time.Now(),
		))

	store := NewPGStore(db)
	user, err := store.Users(context.Background()).FindByEmail(context.Background(), "dev@acme.test")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if user.ID != "user-1" || user.Role != RoleDeveloper {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.CreatedBy != "" {
		t.Fatalf("null created_by should scan empty, got %q", user.CreatedBy)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(lastLogin) {
		t.Fatalf("last login = %v", user.LastLogin)
	}
	if user.LastIP != "10.0.0.5" {
		t.Fatalf("last ip = %q", user.LastIP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from users where id").
		WithArgs("absent").
		WillReturnRows(userRows())

	store := NewPGStore(db)
	_, err = store.Users(context.Background()).Find(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGCountActiveByOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select count\\(\\*\\) from users").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	store := NewPGStore(db)
	count, err := store.Users(context.Background()).CountActiveByOrg(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("CountActiveByOrg: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}
}

func TestPGUpdateLoginMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("update users set last_login").
		WithArgs("user-1", at, "10.0.0.5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	err = store.Users(context.Background()).UpdateLoginMetadata(context.Background(), "user-1", at, "10.0.0.5")
	if err != nil {
		t.Fatalf("UpdateLoginMetadata: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expires := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from organizations where id").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "license_type", "license_expires_at", "max_users",
			"features_enabled", "allowed_ips", "is_active", "created_at", "updated_at",
		}).AddRow(
			"org-1", "Acme", "enterprise", expires, 50,
			[]byte(`["dashboard","validator"]`), []byte(`["10.0.0.0/8"]`),
			true, time.Now(), time.Now(),
		))

	store := NewPGStore(db)
	org, err := store.Organizations(context.Background()).Find(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if org.LicenseType != LicenseEnterprise || org.MaxUsers != 50 {
		t.Fatalf("unexpected org: %+v", org)
	}
	if len(org.FeaturesEnabled) != 2 || org.FeaturesEnabled[0] != "dashboard" {
		t.Fatalf("features = %v", org.FeaturesEnabled)
	}
	if len(org.AllowedIPs) != 1 || org.AllowedIPs[0] != "10.0.0.0/8" {
		t.Fatalf("allowed ips = %v", org.AllowedIPs)
	}
}

func TestPGCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), "dev@acme.test", "hash", "Dev One", "developer", "org-1", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	user := &User{
		Email:          "dev@acme.test",
		PasswordHash:   "hash",
		FullName:       "Dev One",
		Role:           RoleDeveloper,
		OrganizationID: "org-1",
		IsActive:       true,
	}
	if err := store.Users(context.Background()).Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestPGAppendAuditRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into audit_logs").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), "login_failed",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	rec := &AuditRecord{
		Timestamp:    time.Now().UTC(),
		Action:       ActionLoginFailed,
		UserEmail:    "dev@acme.test",
		IPAddress:    "10.0.0.5",
		Status:       StatusFailed,
		ErrorMessage: "invalid email or password",
		Details:      map[string]any{"reason": ReasonInvalidCredentials},
	}
	if err := store.Audit(context.Background()).Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
