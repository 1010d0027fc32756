package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeTimeout, status: http.StatusGatewayTimeout, publicMsg: "upstream timed out", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
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

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatalf("nil error should not be retryable")
	}
	if !IsRetryable(fmt.Errorf("fetch page: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("503"), "shopify")) {
		t.Fatalf("dependency errors should be retryable")
	}
	if IsRetryable(New(CodeValidation, "bad payload")) {
		t.Fatalf("validation errors should not be retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors should not be retryable")
	}
}

func TestDumpCollectsChainAndPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_store", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("upsert order: %w", pgErr), "persist order")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "idx_orders_order_store" {
		t.Fatalf("expected postgres details, got %+v", dump)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three chain entries, got %d", len(dump.Chain))
	}

	fields := dump.Fields()
	if fields["pg_table"] != "orders" {
		t.Fatalf("expected pg_table field, got %v", fields)
	}
	if _, ok := fields["pg_detail"]; ok {
		t.Fatalf("empty pg fields should be omitted")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Fields()) != 0 {
		t.Fatalf("expected empty dump for nil error")
	}
}
