package handler

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/graph"
)

// graphqlRequest is the standard GraphQL POST body.
type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLHandler serves the API over a single POST endpoint.
type GraphQLHandler struct {
	Schema graphql.Schema
}

// NewGraphQLHandler wraps an executable schema in an HTTP handler.
func NewGraphQLHandler(schema graphql.Schema) *GraphQLHandler {
	return &GraphQLHandler{Schema: schema}
}

// Serve decodes the request, executes it against the schema and writes the
// shaped response. Every GraphQL outcome, including errors, goes out with
// HTTP 200; only an unreadable body is rejected at the transport level.
func (h *GraphQLHandler) Serve(c echo.Context) error {
	var req graphqlRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, graph.Response{
			Errors: []graph.ResponseError{{
				Message:    "invalid_request_body",
				Extensions: map[string]interface{}{"code": graph.CodeBadUserInput},
			}},
		})
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.Schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        c.Request().Context(),
	})

	return c.JSON(http.StatusOK, graph.ShapeResponse(result))
}
