package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// Tokens is the access/refresh pair returned by every credential-issuing
// operation. Both strings already carry the "Bearer " prefix.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Resolver implements every operation in the schema. One value serves all
// requests; per-request state travels in the context.
type Resolver struct {
	Store    UserStore
	Codec    *utils.TokenCodec
	Notifier Notifier
	Log      *slog.Logger
}

func (r *Resolver) issuePair(email string) (*Tokens, error) {
	access, err := r.Codec.Issue(utils.AccessToken, email)
	if err != nil {
		return nil, err
	}
	refresh, err := r.Codec.Issue(utils.RefreshToken, email)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// notify dispatches an account email without letting delivery problems reach
// the caller.
func (r *Resolver) notify(ctx context.Context, u *model.User, template string) {
	if r.Notifier == nil {
		return
	}
	if err := r.Notifier.Notify(ctx, u, template); err != nil && r.Log != nil {
		r.Log.Warn("email dispatch failed",
			"template", template, "email", u.Email, "error", err)
	}
}

// Register creates an account and signs the new user in immediately. The
// store reports every violated constraint at once; a taken email surfaces as
// the IsEmailUnique violation.
func (r *Resolver) Register(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	username, _ := p.Args["username"].(string)
	password, _ := p.Args["password"].(string)

	user, err := r.Store.Create(p.Context, username, email, password)
	if err != nil {
		return nil, err
	}
	r.notify(p.Context, user, queue.TemplateConfirmEmail)
	return r.issuePair(user.Email)
}

// Login verifies credentials and issues a fresh token pair. A lookup miss
// and a wrong password produce the identical generic message.
func (r *Resolver) Login(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	user, err := r.Store.FindByEmail(p.Context, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NewAuthenticationError("wrong_email_or_password")
		}
		return nil, err
	}
	if !utils.VerifyPassword(user.Password, password) {
		return nil, NewAuthenticationError("wrong_email_or_password")
	}
	return r.issuePair(user.Email)
}

// RefreshTokens exchanges a valid refresh token for a fresh pair. A token
// for a user that no longer exists counts as invalid.
func (r *Resolver) RefreshTokens(p graphql.ResolveParams) (interface{}, error) {
	token, _ := p.Args["refreshToken"].(string)

	claims, err := r.Codec.Verify(utils.RefreshToken, token)
	if err != nil {
		return nil, forbiddenTokenError(utils.RefreshToken, err)
	}
	user, err := r.Store.FindByEmail(p.Context, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NewForbiddenError("refreshToken_invalid")
		}
		return nil, err
	}
	return r.issuePair(user.Email)
}

// ForgotPassword dispatches a reset email when the account exists. The reply
// is the same literal either way so the operation never reveals whether an
// email is registered.
func (r *Resolver) ForgotPassword(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)

	user, err := r.Store.FindByEmail(p.Context, email)
	switch {
	case err == nil:
		r.notify(p.Context, user, queue.TemplateForgotPassword)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}
	return "email_sent_if_exist", nil
}

// ConfirmEmail marks the token's account as confirmed and issues a fresh
// token pair.
func (r *Resolver) ConfirmEmail(p graphql.ResolveParams) (interface{}, error) {
	token, _ := p.Args["confirmToken"].(string)

	claims, err := r.Codec.Verify(utils.ConfirmToken, token)
	if err != nil {
		return nil, forbiddenTokenError(utils.ConfirmToken, err)
	}
	user, err := r.Store.FindByEmail(p.Context, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NewForbiddenError("confirmToken_invalid")
		}
		return nil, err
	}

	user.Confirmed = true
	if _, err := r.Store.Save(p.Context, user); err != nil {
		return nil, err
	}
	return r.issuePair(user.Email)
}

// ChangePassword replaces the account password using a forgot token. The
// plaintext goes through the store, which re-validates and re-hashes it.
func (r *Resolver) ChangePassword(p graphql.ResolveParams) (interface{}, error) {
	token, _ := p.Args["forgotToken"].(string)
	password, _ := p.Args["password"].(string)

	claims, err := r.Codec.Verify(utils.ForgotToken, token)
	if err != nil {
		return nil, forbiddenTokenError(utils.ForgotToken, err)
	}
	user, err := r.Store.FindByEmail(p.Context, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NewForbiddenError("forgotToken_invalid")
		}
		return nil, err
	}

	user.Password = password // plaintext; Save re-validates and re-hashes
	if _, err := r.Store.Save(p.Context, user); err != nil {
		return nil, err
	}
	return r.issuePair(user.Email)
}
