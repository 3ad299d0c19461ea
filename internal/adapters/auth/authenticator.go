package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Authenticator struct {
	users  domain.UserRepository
	tokens *Tokens
}

func NewAuthenticator(users domain.UserRepository, tokens *Tokens) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// Login checks credentials and returns the user with a fresh session token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	u, err := a.users.ByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		log.Info().Str("username", u.Username).Msg("login rejected")
		return domain.User{}, "", ErrInvalidCredentials
	}
	tok, err := a.tokens.Issue(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, tok, nil
}

// Actor resolves a raw token; anything unverifiable is the anonymous actor.
func (a *Authenticator) Actor(token string) domain.Actor {
	if token == "" {
		return domain.Anonymous()
	}
	actor, err := a.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("discarding session token")
		return domain.Anonymous()
	}
	return actor
}

func (a *Authenticator) Tokens() *Tokens { return a.tokens }
