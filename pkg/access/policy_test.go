package access

import "testing"

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	if err != nil {
		t.Fatalf("parse admin: %v", err)
	}
	if role != RoleAdmin {
		t.Fatalf("unexpected role %s", role)
	}

	if _, err := ParseRole("librarian"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestScopeSelfOnly(t *testing.T) {
	if (Scope{Username: "ana", Role: RoleAdmin}).SelfOnly() {
		t.Fatal("admin scope must not be self-only")
	}
	if !(Scope{Username: "ana", Role: RoleUser}).SelfOnly() {
		t.Fatal("user scope must be self-only")
	}
	// unknown roles degrade to the most restrictive scope
	if !(Scope{Username: "ana", Role: Role("")}).SelfOnly() {
		t.Fatal("empty role must be self-only")
	}
}

func TestWritePredicates(t *testing.T) {
	if !RoleAdmin.CanManageCatalog() || !RoleAdmin.CanDeleteLendingRecords() {
		t.Fatal("admin must hold catalog and ledger write permissions")
	}
	if RoleUser.CanManageCatalog() || RoleUser.CanDeleteLendingRecords() {
		t.Fatal("ordinary users must not hold admin write permissions")
	}
}
