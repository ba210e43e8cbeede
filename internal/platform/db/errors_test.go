package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert budget: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_budgets_triple"})
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "activities_financial_year_id_fkey"}

	if !IsUniqueViolation(unique, "uq_budgets_triple") {
		t.Fatalf("expected unique violation on named constraint")
	}
	if !IsUniqueViolation(unique, "") {
		t.Fatalf("expected unique violation without constraint filter")
	}
	if IsUniqueViolation(unique, "other") {
		t.Fatalf("constraint filter should not match a different name")
	}
	if !IsForeignKeyViolation(fk) {
		t.Fatalf("expected foreign key violation")
	}
	if IsForeignKeyViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not violations")
	}
	if IsCheckViolation(fk, "") {
		t.Fatalf("foreign key is not a check violation")
	}
}
