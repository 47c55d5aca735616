// Package graph carries the GraphQL schema, the resolvers implementing every
// account operation, and the error shaping that keeps the wire contract
// stable.
package graph

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/iliyamo/account-service/internal/model"
)

// UserStore is the credential store consumed by the resolvers. Create and
// Save validate fields and hash the password before persisting; lookups
// return repository.ErrUserNotFound on a miss.
type UserStore interface {
	Create(ctx context.Context, username, email, password string) (*model.User, error)
	Save(ctx context.Context, u *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]*model.User, error)
}

// Notifier dispatches account emails. Implementations are fire-and-forget
// from the resolver's point of view; failures are logged, never surfaced to
// the API caller.
type Notifier interface {
	Notify(ctx context.Context, u *model.User, template string) error
}

// NewSchema wires the account schema to a resolver set: queries for
// login/refreshTokens/forgotPassword/me/users and mutations for
// register/confirmEmail/changePassword.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"username":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"confirmed": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"updatedAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		},
	})

	tokensType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tokens",
		Fields: graphql.Fields{
			"accessToken":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"refreshToken": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: tokensType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.Login,
			},
			"refreshTokens": &graphql.Field{
				Type: tokensType,
				Args: graphql.FieldConfigArgument{
					"refreshToken": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.RefreshTokens,
			},
			"forgotPassword": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.ForgotPassword,
			},
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.Me,
			},
			"users": &graphql.Field{
				Type:    graphql.NewList(userType),
				Resolve: r.Users,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: tokensType,
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.Register,
			},
			"confirmEmail": &graphql.Field{
				Type: tokensType,
				Args: graphql.FieldConfigArgument{
					"confirmToken": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.ConfirmEmail,
			},
			"changePassword": &graphql.Field{
				Type: tokensType,
				Args: graphql.FieldConfigArgument{
					"password":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"forgotToken": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.ChangePassword,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}
