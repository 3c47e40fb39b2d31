package auth

import (
	"context"
	"errors"
	"testing"
)

func TestAuthorizer_Authenticate_Success(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)

	account := seedTestAccount(t, repo, "teacher1", RoleTeacher)

	got, err := authz.Authenticate(context.Background(), account.APIKey, []Role{RoleTeacher, RoleStudent})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("ID = %q, want %q", got.ID, account.ID)
	}
}

func TestAuthorizer_Authenticate_BraceWrappedKey(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)

	account := seedTestAccount(t, repo, "wrapped", RoleSensor)

	got, err := authz.Authenticate(context.Background(), "{"+account.APIKey+"}", []Role{RoleSensor})
	if err != nil {
		t.Fatalf("Authenticate() with braces error = %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("ID = %q, want %q", got.ID, account.ID)
	}
}

func TestAuthorizer_Authenticate_UnknownKey(t *testing.T) {
	db := testDB(t)
	authz := NewAuthorizer(NewAccountRepository(db))

	_, err := authz.Authenticate(context.Background(), "no-such-key", []Role{RoleTeacher})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorizer_Authenticate_EmptyKey(t *testing.T) {
	db := testDB(t)
	authz := NewAuthorizer(NewAccountRepository(db))

	for _, key := range []string{"", "{}", "{{}}"} {
		_, err := authz.Authenticate(context.Background(), key, []Role{RoleTeacher})
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Authenticate(%q) error = %v, want ErrUnauthenticated", key, err)
		}
	}
}

func TestAuthorizer_Authenticate_RoleNotAllowed(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)

	account := seedTestAccount(t, repo, "student1", RoleStudent)

	_, err := authz.Authenticate(context.Background(), account.APIKey, []Role{RoleTeacher, RoleSensor})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Error("role mismatch must not look like a missing credential")
	}
}

func TestAuthorizer_Authenticate_EmptyAllowListDeniesAll(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)

	account := seedTestAccount(t, repo, "anyone", RoleTeacher)

	_, err := authz.Authenticate(context.Background(), account.APIKey, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden for empty allow-list", err)
	}
}

func TestAuthorizer_Authenticate_UnknownStoredRole(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)

	account := &Account{
		Username: "corrupted",
		Password: "x",
		Role:     Role("WIZARD"),
		APIKey:   NewAPIKey(),
	}
	if err := repo.Insert(context.Background(), account); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	_, err := authz.Authenticate(context.Background(), account.APIKey, []Role{RoleTeacher, RoleStudent, RoleSensor})
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("error = %v, want ErrUnknownRole", err)
	}
	// Collapses to Forbidden at the decision point, never to Unauthenticated.
	if !errors.Is(err, ErrForbidden) {
		t.Error("ErrUnknownRole must satisfy errors.Is(err, ErrForbidden)")
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Error("unknown role must not be treated as a missing credential")
	}
}

func TestAuthorizer_Authenticate_DoesNotTouchLastLogin(t *testing.T) {
	db := testDB(t)
	repo := NewAccountRepository(db)
	authz := NewAuthorizer(repo)
	ctx := context.Background()

	account := seedTestAccount(t, repo, "observer", RoleStudent)
	before, err := repo.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	// One success and one failure; neither may mutate last-login.
	if _, err := authz.Authenticate(ctx, account.APIKey, []Role{RoleStudent}); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if _, err := authz.Authenticate(ctx, account.APIKey, []Role{RoleTeacher}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Authenticate() error = %v, want ErrForbidden", err)
	}

	after, err := repo.FindByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !after.LastLogin.Equal(before.LastLogin) {
		t.Errorf("LastLogin changed from %v to %v; Authenticate must be side-effect free", before.LastLogin, after.LastLogin)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "STUDENT", want: RoleStudent},
		{input: "TEACHER", want: RoleTeacher},
		{input: "SENSOR", want: RoleSensor},
		{input: "student", wantErr: true}, // case-sensitive by contract
		{input: "ADMIN", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownRole) {
					t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"{abc-123}", "abc-123"},
		{"abc-123", "abc-123"},
		{"{abc-123", "abc-123"},
		{"{{abc-123}}", "abc-123"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripKey(tt.input); got != tt.want {
			t.Errorf("StripKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
