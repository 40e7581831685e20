package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
)

// tagged marks an error raised inside a write closure with the code MapError
// should give it.
type tagged struct {
	code domainagg.ErrorCode
	msg  string
}

func (t *tagged) Error() string { return t.msg }

func ValidationError(msg string) error { return &tagged{domainagg.CodeValidation, strings.TrimSpace(msg)} }
func InvariantError(msg string) error {
	return &tagged{domainagg.CodeInvariantViolation, strings.TrimSpace(msg)}
}
func ConflictError(msg string) error  { return &tagged{domainagg.CodeConflict, strings.TrimSpace(msg)} }
func RetryableError(msg string) error { return &tagged{domainagg.CodeRetryable, strings.TrimSpace(msg)} }

// SQLSTATE classes that change how a write is reported.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqlite and driver errors only surface as text.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint failed", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"database is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError turns a failure from a write closure into a *domainagg.Error.
// Errors that already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	var t *tagged
	if errors.As(err, &t) {
		return t.code
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return aggErr.Code
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
