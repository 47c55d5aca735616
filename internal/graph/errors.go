package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/location"

	"github.com/iliyamo/account-service/internal/utils"
	"github.com/iliyamo/account-service/internal/validate"
)

// Machine-readable error codes carried in error extensions.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// APIError is a domain error with a stable message and machine code.
// Authentication errors keep their messages generic so responses never
// reveal whether an identifier exists in the store.
type APIError struct {
	Message string
	Code    string
}

func (e *APIError) Error() string { return e.Message }

// Extensions implements gqlerrors.ExtendedError so the code survives
// graphql-go's error formatting.
func (e *APIError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// NewAuthenticationError builds an identity-cannot-be-established error.
func NewAuthenticationError(msg string) *APIError {
	return &APIError{Message: msg, Code: CodeUnauthenticated}
}

// NewForbiddenError builds an insufficient-credentials error.
func NewForbiddenError(msg string) *APIError {
	return &APIError{Message: msg, Code: CodeForbidden}
}

// forbiddenTokenError translates a codec failure into the forbidden-class
// error for the token kind that was expected: "<kind>_expired" for a validly
// signed token past its deadline, "<kind>_invalid" for everything else.
func forbiddenTokenError(kind utils.TokenKind, err error) error {
	if errors.Is(err, utils.ErrTokenExpired) {
		return NewForbiddenError(string(kind) + "_expired")
	}
	return NewForbiddenError(string(kind) + "_invalid")
}

// Response is the wire shape of every GraphQL reply. Data is always present
// in the envelope; it is nulled entirely whenever errors exist so partial
// results never leak alongside a failure.
type Response struct {
	Data   interface{}     `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ResponseError is one entry in the errors array.
type ResponseError struct {
	Message    string                    `json:"message"`
	Locations  []location.SourceLocation `json:"locations,omitempty"`
	Extensions map[string]interface{}    `json:"extensions,omitempty"`
}

// ShapeResponse converts an execution result into the stable error contract:
// data is nulled when any error occurred, aggregated validation failures are
// expanded into one entry per violated constraint, and the executor's
// null-variable messages are rewritten to the transport-level field
// messages.
func ShapeResponse(result *graphql.Result) Response {
	if len(result.Errors) == 0 {
		return Response{Data: result.Data}
	}

	out := Response{}
	for _, fe := range result.Errors {
		if verrs := validationErrors(fe); verrs != nil {
			for _, v := range verrs.Violations {
				out.Errors = append(out.Errors, ResponseError{
					Message:   v.Message,
					Locations: fe.Locations,
					Extensions: map[string]interface{}{
						"code":       CodeBadUserInput,
						"constraint": v.Constraint,
						"property":   v.Property,
						"value":      v.Value,
					},
				})
			}
			continue
		}
		out.Errors = append(out.Errors, ResponseError{
			Message:    renameVariableMessage(fe.Message),
			Locations:  fe.Locations,
			Extensions: fe.Extensions,
		})
	}
	return out
}

// validationErrors digs the aggregated store violations out of a formatted
// error, unwrapping the executor's own error layers on the way.
func validationErrors(fe gqlerrors.FormattedError) *validate.Errors {
	err := fe.OriginalError()
	for err != nil {
		switch e := err.(type) {
		case *validate.Errors:
			return e
		case *gqlerrors.Error:
			err = e.OriginalError
		case gqlerrors.Error:
			err = e.OriginalError
		default:
			return nil
		}
	}
	return nil
}

// renameVariableMessage maps the executor's messages for null or missing
// required variables onto the field-level empty messages, so the transport
// check and the store check speak the same language.
func renameVariableMessage(msg string) string {
	for _, field := range []string{"email", "username", "password"} {
		if strings.HasPrefix(msg, fmt.Sprintf("Variable \"$%s\"", field)) {
			return field + "_cannot_be_empty"
		}
	}
	return msg
}
