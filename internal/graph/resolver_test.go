package graph

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
	"github.com/iliyamo/account-service/internal/validate"
)

// memStore is an in-memory UserStore with the same validation and hashing
// contract as the MySQL repository.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uint64]*model.User)}
}

func (s *memStore) emailTaken(_ context.Context, email string, selfID uint64) (bool, error) {
	for _, u := range s.users {
		if u.Email == email && u.ID != selfID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Create(ctx context.Context, username, email, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &model.User{Username: username, Email: email}
	if err := validate.User(ctx, u, &password, s.emailTaken); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	s.nextID++
	now := time.Now().UTC()
	u.ID = s.nextID
	u.Password = hash
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return u, nil
}

func (s *memStore) Save(ctx context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	var plain *string
	if u.Password != current.Password {
		p := u.Password
		plain = &p
	}
	if err := validate.User(ctx, u, plain, s.emailTaken); err != nil {
		return nil, err
	}
	if plain != nil {
		hash, err := utils.HashPassword(*plain, bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	return u, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) FindByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *memStore) ListAll(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.users))
	for id := uint64(1); id <= s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) delete(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type sentMail struct {
	Email    string
	Template string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) Notify(_ context.Context, u *model.User, template string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{Email: u.Email, Template: template})
	return nil
}

func (n *fakeNotifier) all() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

type testEnv struct {
	schema   graphql.Schema
	store    *memStore
	notifier *fakeNotifier
	codec    *utils.TokenCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	notifier := &fakeNotifier{}
	codec := utils.NewTokenCodec("test-access-secret", "test-refresh-secret",
		time.Hour, time.Hour, time.Hour)
	r := &Resolver{
		Store:    store,
		Codec:    codec,
		Notifier: notifier,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	schema, err := NewSchema(r)
	require.NoError(t, err)
	return &testEnv{schema: schema, store: store, notifier: notifier, codec: codec}
}

func (e *testEnv) do(ctx context.Context, query string, vars map[string]interface{}) Response {
	if ctx == nil {
		ctx = context.Background()
	}
	result := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
	return ShapeResponse(result)
}

func (e *testEnv) register(t *testing.T, username, email, password string) Response {
	t.Helper()
	return e.do(nil, registerMutation, map[string]interface{}{
		"username": username, "email": email, "password": password,
	})
}

func (e *testEnv) authCtx(id uint64) context.Context {
	return WithAuthContext(context.Background(), AuthContext{User: &AuthUser{ID: id}})
}

const (
	registerMutation = `mutation ($username: String!, $email: String!, $password: String!) {
		register(username: $username, email: $email, password: $password) {
			accessToken refreshToken
		}
	}`
	loginQuery = `query ($email: String!, $password: String!) {
		login(email: $email, password: $password) { accessToken refreshToken }
	}`
	refreshQuery = `query ($refreshToken: String!) {
		refreshTokens(refreshToken: $refreshToken) { accessToken refreshToken }
	}`
	forgotQuery = `query ($email: String!) { forgotPassword(email: $email) }`

	confirmMutation = `mutation ($confirmToken: String!) {
		confirmEmail(confirmToken: $confirmToken) { accessToken refreshToken }
	}`
	changePasswordMutation = `mutation ($forgotToken: String!, $password: String!) {
		changePassword(forgotToken: $forgotToken, password: $password) { accessToken refreshToken }
	}`
	meQuery    = `query { me { id username email confirmed } }`
	usersQuery = `query { users { id username email } }`
)

func tokensFrom(t *testing.T, resp Response, field string) (access, refresh string) {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is not an object: %#v", resp.Data)
	pair, ok := data[field].(map[string]interface{})
	require.True(t, ok, "%s is not an object: %#v", field, data[field])
	access, _ = pair["accessToken"].(string)
	refresh, _ = pair["refreshToken"].(string)
	return access, refresh
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "alice", "alice@example.com", "long enough password")
	require.Empty(t, resp.Errors)

	access, refresh := tokensFrom(t, resp, "register")
	assert.True(t, strings.HasPrefix(access, "Bearer "))
	assert.True(t, strings.HasPrefix(refresh, "Bearer "))

	claims, err := env.codec.Verify(utils.AccessToken, access)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Registration queues the confirmation email.
	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, sentMail{Email: "alice@example.com", Template: queue.TemplateConfirmEmail}, sent[0])

	// New accounts start unconfirmed.
	u, err := env.store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	resp := env.register(t, "other", "alice@example.com", "long enough password")
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "email_must_be_unique", resp.Errors[0].Message)
	assert.Equal(t, map[string]interface{}{
		"code":       CodeBadUserInput,
		"constraint": validate.ConstraintIsEmailUnique,
		"property":   "email",
		"value":      "alice@example.com",
	}, resp.Errors[0].Extensions)

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegisterAggregatesViolations(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "", "", "")
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 6)

	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
		assert.Equal(t, CodeBadUserInput, e.Extensions["code"])
	}
	assert.Equal(t, []string{
		"username_cannot_be_empty",
		"username_must_be_between_3_and_50_characters",
		"email_cannot_be_empty",
		"email_must_be_an_email",
		"password_cannot_be_empty",
		"password_must_be_at_least_8_characters",
	}, msgs)
}

func TestRegisterNullVariable(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(nil, registerMutation, map[string]interface{}{
		"username": "alice", "password": "long enough password",
	})
	assert.Nil(t, resp.Data)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "email_cannot_be_empty", resp.Errors[0].Message)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	resp := env.do(nil, loginQuery, map[string]interface{}{
		"email": "alice@example.com", "password": "long enough password",
	})
	require.Empty(t, resp.Errors)
	access, _ := tokensFrom(t, resp, "login")
	claims, err := env.codec.Verify(utils.AccessToken, access)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestLoginDoesNotRevealAccountExistence(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	wrongPassword := env.do(nil, loginQuery, map[string]interface{}{
		"email": "alice@example.com", "password": "not the password",
	})
	unknownEmail := env.do(nil, loginQuery, map[string]interface{}{
		"email": "ghost@example.com", "password": "not the password",
	})

	for _, resp := range []Response{wrongPassword, unknownEmail} {
		assert.Nil(t, resp.Data)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "wrong_email_or_password", resp.Errors[0].Message)
		assert.Equal(t, CodeUnauthenticated, resp.Errors[0].Extensions["code"])
	}
}

func TestRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "long enough password")
	_, refresh := tokensFrom(t, resp, "register")

	renewed := env.do(nil, refreshQuery, map[string]interface{}{"refreshToken": refresh})
	require.Empty(t, renewed.Errors)
	access, newRefresh := tokensFrom(t, renewed, "refreshTokens")

	_, err := env.codec.Verify(utils.AccessToken, access)
	assert.NoError(t, err)
	_, err = env.codec.Verify(utils.RefreshToken, newRefresh)
	assert.NoError(t, err)
}

func TestRefreshTokensRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "long enough password")
	access, _ := tokensFrom(t, resp, "register")

	renewed := env.do(nil, refreshQuery, map[string]interface{}{"refreshToken": access})
	assert.Nil(t, renewed.Data)
	require.Len(t, renewed.Errors, 1)
	assert.Equal(t, "refreshToken_invalid", renewed.Errors[0].Message)
	assert.Equal(t, CodeForbidden, renewed.Errors[0].Extensions["code"])
}

func TestRefreshTokensExpired(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	expiredCodec := utils.NewTokenCodec("test-access-secret", "test-refresh-secret",
		-time.Minute, -time.Minute, -time.Minute)
	expired, err := expiredCodec.Issue(utils.RefreshToken, "alice@example.com")
	require.NoError(t, err)

	resp := env.do(nil, refreshQuery, map[string]interface{}{"refreshToken": expired})
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "refreshToken_expired", resp.Errors[0].Message)
	assert.Equal(t, CodeForbidden, resp.Errors[0].Extensions["code"])
}

func TestRefreshTokensDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "long enough password")
	_, refresh := tokensFrom(t, resp, "register")
	env.store.delete(1)

	renewed := env.do(nil, refreshQuery, map[string]interface{}{"refreshToken": refresh})
	assert.Nil(t, renewed.Data)
	require.Len(t, renewed.Errors, 1)
	assert.Equal(t, "refreshToken_invalid", renewed.Errors[0].Message)
}

func TestForgotPasswordDoesNotRevealAccountExistence(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")
	env.notifier.sent = nil

	known := env.do(nil, forgotQuery, map[string]interface{}{"email": "alice@example.com"})
	unknown := env.do(nil, forgotQuery, map[string]interface{}{"email": "ghost@example.com"})

	for _, resp := range []Response{known, unknown} {
		require.Empty(t, resp.Errors)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "email_sent_if_exist", data["forgotPassword"])
	}

	// Only the existing account got an email.
	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, sentMail{Email: "alice@example.com", Template: queue.TemplateForgotPassword}, sent[0])
}

func TestConfirmEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	confirm, err := env.codec.Issue(utils.ConfirmToken, "alice@example.com")
	require.NoError(t, err)

	resp := env.do(nil, confirmMutation, map[string]interface{}{"confirmToken": confirm})
	require.Empty(t, resp.Errors)
	access, _ := tokensFrom(t, resp, "confirmEmail")
	assert.True(t, strings.HasPrefix(access, "Bearer "))

	u, err := env.store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.Confirmed)

	// Confirming leaves the password untouched.
	login := env.do(nil, loginQuery, map[string]interface{}{
		"email": "alice@example.com", "password": "long enough password",
	})
	assert.Empty(t, login.Errors)
}

func TestConfirmEmailBadToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(nil, confirmMutation, map[string]interface{}{"confirmToken": "Bearer junk"})
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "confirmToken_invalid", resp.Errors[0].Message)
	assert.Equal(t, CodeForbidden, resp.Errors[0].Extensions["code"])
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	forgot, err := env.codec.Issue(utils.ForgotToken, "alice@example.com")
	require.NoError(t, err)

	resp := env.do(nil, changePasswordMutation, map[string]interface{}{
		"forgotToken": forgot, "password": "brand new password",
	})
	require.Empty(t, resp.Errors)

	old := env.do(nil, loginQuery, map[string]interface{}{
		"email": "alice@example.com", "password": "long enough password",
	})
	require.Len(t, old.Errors, 1)
	assert.Equal(t, "wrong_email_or_password", old.Errors[0].Message)

	fresh := env.do(nil, loginQuery, map[string]interface{}{
		"email": "alice@example.com", "password": "brand new password",
	})
	assert.Empty(t, fresh.Errors)
}

func TestChangePasswordTooShort(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	forgot, err := env.codec.Issue(utils.ForgotToken, "alice@example.com")
	require.NoError(t, err)

	resp := env.do(nil, changePasswordMutation, map[string]interface{}{
		"forgotToken": forgot, "password": "short",
	})
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "password_must_be_at_least_8_characters", resp.Errors[0].Message)
	assert.Equal(t, validate.ConstraintMinLength, resp.Errors[0].Extensions["constraint"])
}

func TestChangePasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	expiredCodec := utils.NewTokenCodec("test-access-secret", "test-refresh-secret",
		-time.Minute, -time.Minute, -time.Minute)
	forgot, err := expiredCodec.Issue(utils.ForgotToken, "alice@example.com")
	require.NoError(t, err)

	resp := env.do(nil, changePasswordMutation, map[string]interface{}{
		"forgotToken": forgot, "password": "brand new password",
	})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "forgotToken_expired", resp.Errors[0].Message)
}

func TestMeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(nil, meQuery, nil)
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "must_be_logged_in", resp.Errors[0].Message)
	assert.Equal(t, CodeForbidden, resp.Errors[0].Extensions["code"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")

	resp := env.do(env.authCtx(1), meQuery, nil)
	require.Empty(t, resp.Errors)
	data := resp.Data.(map[string]interface{})
	me := data["me"].(map[string]interface{})
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Equal(t, false, me["confirmed"])
}

func TestMeDeletedUserIsNull(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")
	env.store.delete(1)

	resp := env.do(env.authCtx(1), meQuery, nil)
	require.Empty(t, resp.Errors)
	data := resp.Data.(map[string]interface{})
	assert.Nil(t, data["me"])
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "long enough password")
	env.register(t, "bob", "bob@example.com", "long enough password")

	resp := env.do(env.authCtx(1), usersQuery, nil)
	require.Empty(t, resp.Errors)
	data := resp.Data.(map[string]interface{})
	list := data["users"].([]interface{})
	require.Len(t, list, 2)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "alice", first["username"])
}

func TestUsersRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(nil, usersQuery, nil)
	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "must_be_logged_in", resp.Errors[0].Message)
}
