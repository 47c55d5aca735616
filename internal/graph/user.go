package graph

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/iliyamo/account-service/internal/repository"
)

// Me returns the calling user, or null when the token's account has been
// removed since the context was resolved.
func (r *Resolver) Me(p graphql.ResolveParams) (interface{}, error) {
	ac, err := Authenticated(p.Context)
	if err != nil {
		return nil, err
	}
	user, err := r.Store.FindByID(p.Context, ac.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Users lists every account. Any authenticated user may call it.
func (r *Resolver) Users(p graphql.ResolveParams) (interface{}, error) {
	if _, err := Authenticated(p.Context); err != nil {
		return nil, err
	}
	return r.Store.ListAll(p.Context)
}
