package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/model"
)

func str(s string) *string { return &s }

func neverTaken(context.Context, string, uint64) (bool, error) { return false, nil }

func constraintsFor(errs *Errors, property string) []string {
	var out []string
	for _, v := range errs.Violations {
		if v.Property == property {
			out = append(out, v.Constraint)
		}
	}
	return out
}

func TestUserValid(t *testing.T) {
	u := &model.User{Username: "alice", Email: "alice@example.com"}
	err := User(context.Background(), u, str("long enough password"), neverTaken)
	assert.NoError(t, err)
}

func TestUserEmptyFieldsAggregateAllViolations(t *testing.T) {
	u := &model.User{}
	err := User(context.Background(), u, str(""), neverTaken)
	require.Error(t, err)

	var errs *Errors
	require.True(t, errors.As(err, &errs))

	// Empty values violate both the presence and the shape constraint of
	// each property, and every one is reported in a single pass.
	assert.Equal(t,
		[]string{ConstraintIsNotEmpty, ConstraintIsLength},
		constraintsFor(errs, "username"))
	assert.Equal(t,
		[]string{ConstraintIsNotEmpty, ConstraintIsEmail},
		constraintsFor(errs, "email"))
	assert.Equal(t,
		[]string{ConstraintIsNotEmpty, ConstraintMinLength},
		constraintsFor(errs, "password"))
	assert.Len(t, errs.Violations, 6)
}

func TestUserMessages(t *testing.T) {
	u := &model.User{Username: "ab", Email: "not-an-email"}
	err := User(context.Background(), u, str("short"), neverTaken)

	var errs *Errors
	require.True(t, errors.As(err, &errs))

	msgs := make([]string, 0, len(errs.Violations))
	for _, v := range errs.Violations {
		msgs = append(msgs, v.Message)
	}
	assert.Equal(t, []string{
		"username_must_be_between_3_and_50_characters",
		"email_must_be_an_email",
		"password_must_be_at_least_8_characters",
	}, msgs)
}

func TestUserPasswordValueNeverEchoed(t *testing.T) {
	u := &model.User{Username: "alice", Email: "alice@example.com"}
	err := User(context.Background(), u, str("short"), neverTaken)

	var errs *Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs.Violations, 1)
	assert.Equal(t, "password", errs.Violations[0].Property)
	assert.Empty(t, errs.Violations[0].Value)
}

func TestUserNilPasswordSkipsPasswordChecks(t *testing.T) {
	u := &model.User{Username: "alice", Email: "alice@example.com"}
	err := User(context.Background(), u, nil, neverTaken)
	assert.NoError(t, err)
}

func TestUserUsernameTooLong(t *testing.T) {
	u := &model.User{Username: strings.Repeat("a", 51), Email: "alice@example.com"}
	err := User(context.Background(), u, str("long enough password"), neverTaken)

	var errs *Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs.Violations, 1)
	assert.Equal(t, ConstraintIsLength, errs.Violations[0].Constraint)
}

func TestUserDuplicateEmail(t *testing.T) {
	taken := func(_ context.Context, email string, selfID uint64) (bool, error) {
		return email == "taken@example.com" && selfID != 7, nil
	}

	u := &model.User{Username: "alice", Email: "taken@example.com"}
	err := User(context.Background(), u, str("long enough password"), taken)

	var errs *Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs.Violations, 1)
	assert.Equal(t, Violation{
		Property:   "email",
		Constraint: ConstraintIsEmailUnique,
		Value:      "taken@example.com",
		Message:    "email_must_be_unique",
	}, errs.Violations[0])

	// The owning record keeps its own email on update.
	u.ID = 7
	assert.NoError(t, User(context.Background(), u, str("long enough password"), taken))
}

func TestUserLookupErrorPropagates(t *testing.T) {
	boom := errors.New("connection lost")
	taken := func(context.Context, string, uint64) (bool, error) { return false, boom }

	u := &model.User{Username: "alice", Email: "alice@example.com"}
	err := User(context.Background(), u, str("long enough password"), taken)
	assert.ErrorIs(t, err, boom)
}
