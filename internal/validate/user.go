// Package validate holds the field-level constraint checks that run before
// every credential-store insert and update. Every violated constraint is
// collected and reported together, not just the first one, because the API
// error contract surfaces one structured error per constraint.
package validate

import (
	"context"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/account-service/internal/model"
)

// Constraint keys as they appear in error extensions.
const (
	ConstraintIsNotEmpty    = "isNotEmpty"
	ConstraintIsLength      = "isLength"
	ConstraintIsEmail       = "isEmail"
	ConstraintMinLength     = "minLength"
	ConstraintIsEmailUnique = "IsEmailUnique"
)

// Violation is a single failed constraint on a single property.
type Violation struct {
	Property   string
	Constraint string
	Value      string
	Message    string
}

// Errors aggregates every violation found during one validation pass.
// It satisfies error so it can travel up through the store contract.
type Errors struct {
	Violations []Violation
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// EmailLookup reports whether an email is already taken by a user other
// than the one identified by selfID (zero for records not yet inserted).
// The lookup is only a friendly pre-check; the storage-level UNIQUE KEY
// remains authoritative under concurrent writes.
type EmailLookup func(ctx context.Context, email string, selfID uint64) (bool, error)

// User checks username, email and, when password is non-nil, the plaintext
// password against the store constraints. A nil password means the save does
// not touch the password field and its checks are skipped. A nil return
// means the record may be persisted; otherwise the returned *Errors carries
// one Violation per failed constraint.
func User(ctx context.Context, u *model.User, password *string, taken EmailLookup) error {
	var errs Errors
	add := func(property, constraint, value, message string) {
		errs.Violations = append(errs.Violations, Violation{
			Property:   property,
			Constraint: constraint,
			Value:      value,
			Message:    message,
		})
	}

	if ozzo.Validate(u.Username, ozzo.Required) != nil {
		// An empty username fails both the presence and the length rule.
		add("username", ConstraintIsNotEmpty, u.Username, "username_cannot_be_empty")
		add("username", ConstraintIsLength, u.Username, "username_must_be_between_3_and_50_characters")
	} else if ozzo.Validate(u.Username, ozzo.Length(3, 50)) != nil {
		add("username", ConstraintIsLength, u.Username, "username_must_be_between_3_and_50_characters")
	}

	if ozzo.Validate(u.Email, ozzo.Required) != nil {
		add("email", ConstraintIsNotEmpty, u.Email, "email_cannot_be_empty")
		add("email", ConstraintIsEmail, u.Email, "email_must_be_an_email")
	} else if ozzo.Validate(u.Email, is.Email) != nil {
		add("email", ConstraintIsEmail, u.Email, "email_must_be_an_email")
	}
	if u.Email != "" && taken != nil {
		dup, err := taken(ctx, u.Email, u.ID)
		if err != nil {
			return err
		}
		if dup {
			add("email", ConstraintIsEmailUnique, u.Email, "email_must_be_unique")
		}
	}

	if password != nil {
		if ozzo.Validate(*password, ozzo.Required) != nil {
			add("password", ConstraintIsNotEmpty, "", "password_cannot_be_empty")
			add("password", ConstraintMinLength, "", "password_must_be_at_least_8_characters")
		} else if ozzo.Validate(*password, ozzo.Length(8, 0)) != nil {
			// The plaintext never leaves this package; violations carry an
			// empty value for the password property.
			add("password", ConstraintMinLength, "", "password_must_be_at_least_8_characters")
		}
	}

	if len(errs.Violations) > 0 {
		return &errs
	}
	return nil
}
