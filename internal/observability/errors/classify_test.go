package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type selfClassified struct{ class string }

func (e *selfClassified) Error() string      { return "self classified" }
func (e *selfClassified) ErrorClass() string { return e.class }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("dispatch: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "classifier", err: fmt.Errorf("wrap: %w", &selfClassified{class: "dispatch_status_5xx"}), want: "dispatch_status_5xx"},
		{name: "blank classifier falls through", err: &selfClassified{}, want: "errors_selfclassified"},
		{
			name: "pg constraint",
			err:  fmt.Errorf("save: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}),
			want: "postgres_constraint",
		},
		{
			name: "pg connection",
			err:  &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			want: "postgres_connection",
		},
		{
			name: "pg other",
			err:  &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			want: "postgres_42p01",
		},
		{name: "net op", err: fmt.Errorf("outer: %w", &net.OpError{Op: "dial", Err: goerrors.New("refused")}), want: "errors_errorstring"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
