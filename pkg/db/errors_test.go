package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_quotes_active_pair"}
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg any", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "pg matching constraint", err: pgErr, constraint: "ux_quotes_active_pair", want: true},
		{name: "pg other constraint", err: pgErr, constraint: "ux_other", want: false},
		{name: "pg other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: quotes.id"), want: true},
		{name: "sqlite with constraint", err: errors.New("UNIQUE constraint failed: quotes.tenant_id, quotes.order_id, quotes.vendor_id"), constraint: "ux_quotes_active_pair", want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsUniqueViolationOnTellsIndexesApart(t *testing.T) {
	sequence := errors.New("UNIQUE constraint failed: quotes.tenant_id, quotes.sequence")
	pair := errors.New("UNIQUE constraint failed: quotes.tenant_id, quotes.order_id, quotes.vendor_id")
	pgSequence := &pgconn.PgError{Code: "23505", ConstraintName: "ux_quotes_tenant_sequence"}

	tests := []struct {
		name       string
		err        error
		constraint string
		column     string
		want       bool
	}{
		{name: "nil", err: nil, constraint: "ux_quotes_tenant_sequence", column: "quotes.sequence", want: false},
		{name: "sqlite sequence", err: sequence, constraint: "ux_quotes_tenant_sequence", column: "quotes.sequence", want: true},
		{name: "sqlite sequence is not pair", err: sequence, constraint: "ux_quotes_active_pair", column: "quotes.vendor_id", want: false},
		{name: "sqlite pair", err: pair, constraint: "ux_quotes_active_pair", column: "quotes.vendor_id", want: true},
		{name: "sqlite pair is not sequence", err: pair, constraint: "ux_quotes_tenant_sequence", column: "quotes.sequence", want: false},
		{name: "pg by name", err: fmt.Errorf("insert: %w", pgSequence), constraint: "ux_quotes_tenant_sequence", column: "quotes.sequence", want: true},
		{name: "pg other name", err: pgSequence, constraint: "ux_quotes_active_pair", column: "quotes.vendor_id", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolationOn(tt.err, tt.constraint, tt.column); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped not found to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("unexpected match")
	}
}
