package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/model"
	"github.com/hyeonsu/market-auth/internal/queue"
)

// SocialProfile is the normalized identity a provider returns after the
// code exchange. Email and Phone may be empty when the member withheld
// them; Phone, when present, is already in domestic digit-only form.
type SocialProfile struct {
	ID    string
	Email string
	Phone string
}

// SocialAuthCode carries the provider callback parameters. Kakao uses
// Code+RedirectURI, Naver uses Code+State.
type SocialAuthCode struct {
	Code        string
	RedirectURI string
	State       string
}

// SocialProvider exchanges an authorization code for a member profile.
// Implementations live in kakao.go and naver.go.
type SocialProvider interface {
	Name() string
	Exchange(ctx context.Context, in SocialAuthCode) (SocialProfile, error)
}

// SocialLogin resolves a provider profile into a local user, creating one
// on first login, and finishes through the same issue-session path as
// password login so the two are indistinguishable downstream.
func (s *Service) SocialLogin(ctx context.Context, provider SocialProvider, in SocialAuthCode) (*Session, error) {
	profile, err := provider.Exchange(ctx, in)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetBySocial(ctx, provider.Name(), profile.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		u, err = s.createSocialUser(ctx, provider.Name(), profile)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperr.Internal(err)
	default:
		// Backfill a phone number the provider only just supplied.
		if profile.Phone != "" && !u.Phone.Valid {
			if err := s.users.UpdatePhone(ctx, u.ID, profile.Phone); err != nil {
				return nil, apperr.Internal(err)
			}
		}
	}

	s.logger.Info("social login", "provider", provider.Name(), "user_id", u.ID)
	return s.issueSession(ctx, u.ID, u.Email, model.RoleUser)
}

// createSocialUser inserts a passwordless account linked to the provider
// identity. When the provider withholds the email a synthesized fallback
// keeps the column unique and non-null.
func (s *Service) createSocialUser(ctx context.Context, provider string, profile SocialProfile) (model.User, error) {
	email := profile.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@example.com", provider, profile.ID)
	}
	u := model.User{
		ID:             uuid.NewString(),
		Email:          email,
		SocialProvider: nullString(provider),
		SocialID:       nullString(profile.ID),
		Phone:          nullString(profile.Phone),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, apperr.Internal(err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, PrincipalID: u.ID, Kind: string(KindUser), Email: u.Email})
	s.logger.Info("user created via social login", "provider", provider, "user_id", u.ID)
	return u, nil
}
