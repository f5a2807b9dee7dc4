package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classifier lets an error choose its own metric/log class.
type Classifier interface {
	ErrorClass() string
}

// Classify returns a normalized error type name suitable for tagging metrics/logs.
//
// Context deadlines and cancellations map to "timeout" and "canceled". Errors
// implementing Classifier anywhere in the chain name themselves. Postgres
// errors are grouped by SQLSTATE class. Anything else is named after the
// innermost concrete type, e.g. "net_operror".
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	var classifier Classifier
	if goerrors.As(err, &classifier) {
		if class := strings.TrimSpace(classifier.ErrorClass()); class != "" {
			return class
		}
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return classifyPgError(pgErr)
	}

	return typeName(innermost(err))
}

func classifyPgError(pgErr *pgconn.PgError) string {
	switch {
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return "postgres_constraint"
	case pgerrcode.IsConnectionException(pgErr.Code):
		return "postgres_connection"
	case pgerrcode.IsInsufficientResources(pgErr.Code):
		return "postgres_resources"
	case pgErr.Code == "":
		return "postgres"
	}
	return "postgres_" + strings.ToLower(pgErr.Code)
}

func innermost(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
