package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusConflict, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s: status = %d, want %d", tt.code, meta.HTTPStatus, tt.status)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s: public message = %q, want %q", tt.code, meta.PublicMessage, tt.publicMsg)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s: retryable = %v, want %v", tt.code, meta.Retryable, tt.retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s: details allowed = %v, want %v", tt.code, meta.DetailsAllowed, tt.detailsOK)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got status %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("code = %s, want %s", base.Code(), CodeValidation)
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("code = %s, want %s", wrapped.Code(), CodeConflict)
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := Wrap(CodeStateConflict, stdErrors.New("boom"), "transition")
	if !IsCode(err, CodeStateConflict) {
		t.Fatalf("IsCode missed matching code")
	}
	if IsCode(err, CodeValidation) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("IsCode matched an untyped error")
	}
}

func TestDumpSurfacesPgxDriverFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_disputes_open_order",
		TableName:      "disputes",
		ColumnName:     "order_id",
		Detail:         "Key (order_id) already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	dump := Dump(Wrap(CodeDependency, pgErr, "create dispute"))

	if dump.Code != CodeDependency {
		t.Fatalf("code = %s, want %s", dump.Code, CodeDependency)
	}
	if dump.PGCode != "23505" {
		t.Fatalf("pg code = %q, want 23505", dump.PGCode)
	}
	if dump.PGConstraint != "uq_disputes_open_order" {
		t.Fatalf("pg constraint = %q", dump.PGConstraint)
	}
	if dump.PGTable != "disputes" || dump.PGColumn != "order_id" {
		t.Fatalf("pg table/column = %q/%q", dump.PGTable, dump.PGColumn)
	}
	if len(dump.Chain) == 0 {
		t.Fatalf("expected the error chain to be flattened")
	}
}

func TestDumpSurfacesPqDriverFields(t *testing.T) {
	pqErr := &pq.Error{
		Code:       "23514",
		Constraint: "products_quantity_check",
		Table:      "products",
		Column:     "quantity",
	}
	dump := Dump(Wrap(CodeDependency, pqErr, "decrement stock"))

	if dump.PGCode != "23514" {
		t.Fatalf("pg code = %q, want 23514", dump.PGCode)
	}
	if dump.PGColumn != "quantity" {
		t.Fatalf("pg column = %q, want quantity", dump.PGColumn)
	}
}

func TestDumpNilError(t *testing.T) {
	dump := Dump(nil)
	if dump.TopMessage != "" || dump.Code != "" || dump.Chain != nil {
		t.Fatalf("Dump(nil) should be empty, got %+v", dump)
	}
}
