package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	plain := NotFound("Passphrase does not exist.")
	assert.Equal(t, "Passphrase does not exist.", plain.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeInternal, "load session")
	assert.Equal(t, "load session: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsDuplicateSecret(DuplicateSecret("x")))
	assert.True(t, IsInvalidCredential(InvalidCredential("x")))
	assert.True(t, IsForbidden(Forbidden("x")))
	assert.True(t, IsGrantNotHeld(GrantNotHeld("x")))
	assert.True(t, IsInvalidSessionToken(InvalidSessionToken("x")))
	assert.True(t, IsValidation(Validation("x")))
	assert.True(t, IsInternal(Internal("x")))

	assert.False(t, IsNotFound(Forbidden("x")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))

	// Predicates see through wrapping.
	outer := fmt.Errorf("handler: %w", InvalidCredential("Invalid passphrase."))
	assert.True(t, IsInvalidCredential(outer))
}

func TestGetCodeAndField(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(ValidationField("secret", "too long")))
	assert.Equal(t, "secret", GetField(ValidationField("secret", "too long")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, "", GetField(errors.New("plain")))
}

func TestMapDBErrorNoRows(t *testing.T) {
	mapped := MapDBError(pgx.ErrNoRows)
	require.True(t, IsNotFound(mapped))
	assert.ErrorIs(t, mapped, pgx.ErrNoRows)
}

func TestMapDBErrorContext(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, GetCode(MapDBError(context.DeadlineExceeded)))
	assert.Equal(t, ErrCodeCanceled, GetCode(MapDBError(context.Canceled)))
}

func TestMapDBErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (secret)=(user) already exists.",
	}
	mapped := MapDBError(pgErr)
	require.True(t, IsDuplicateSecret(mapped))
	assert.Equal(t, "secret", GetField(mapped))
}

func TestMapDBErrorConstraintViolations(t *testing.T) {
	fk := MapDBError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
	assert.True(t, IsValidation(fk))

	check := MapDBError(&pgconn.PgError{
		Code:       pgerrcode.CheckViolation,
		ColumnName: "role",
	})
	require.True(t, IsValidation(check))
	assert.Equal(t, "role", GetField(check))

	internal := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	assert.True(t, IsInternal(internal))
}

func TestMapDBErrorPassthrough(t *testing.T) {
	plain := errors.New("not a database error")
	assert.Equal(t, plain, MapDBError(plain))
	assert.Nil(t, MapDBError(nil))
}
