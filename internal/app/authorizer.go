package app

import (
	"context"
	"errors"

	"quiz-duel-service/internal/domain"
)

// ErrUnauthorized is returned when a credential resolves to no identity.
var ErrUnauthorized = errors.New("unauthorized")

// StaticAuthorizer resolves credentials from a fixed token table. It stands in
// for the external identity provider in demo mode and tests.
type StaticAuthorizer struct {
	tokens map[string]domain.UserData
}

func NewStaticAuthorizer(tokens map[string]domain.UserData) *StaticAuthorizer {
	return &StaticAuthorizer{tokens: tokens}
}

func (a *StaticAuthorizer) Authorize(_ context.Context, credential string) (domain.UserData, error) {
	user, ok := a.tokens[credential]
	if !ok {
		return domain.UserData{}, ErrUnauthorized
	}
	return user, nil
}
