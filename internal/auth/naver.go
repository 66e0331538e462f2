package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/utils"
)

const (
	naverTokenURL   = "https://nid.naver.com/oauth2.0/token"
	naverProfileURL = "https://openapi.naver.com/v1/nid/me"
)

// NaverProvider implements SocialProvider against Naver's OAuth endpoints.
type NaverProvider struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	ProfileURL   string
	Client       *http.Client
}

func NewNaverProvider(clientID, clientSecret string) *NaverProvider {
	return &NaverProvider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     naverTokenURL,
		ProfileURL:   naverProfileURL,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *NaverProvider) Name() string { return "naver" }

// Exchange swaps the authorization code (plus CSRF state) for a Naver
// access token and fetches the member profile. Naver wraps the profile in
// a "response" envelope.
func (p *NaverProvider) Exchange(ctx context.Context, in SocialAuthCode) (SocialProfile, error) {
	q := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.ClientID},
		"client_secret": {p.ClientSecret},
		"code":          {in.Code},
		"state":         {in.State},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		return SocialProfile{}, apperr.BadRequest("naver token issuance failed")
	}

	preq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ProfileURL, nil)
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}
	preq.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	presp, err := p.Client.Do(preq)
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}
	defer func() { _ = presp.Body.Close() }()

	var body struct {
		Response struct {
			ID     string `json:"id"`
			Email  string `json:"email"`
			Mobile string `json:"mobile"`
		} `json:"response"`
	}
	if err := json.NewDecoder(presp.Body).Decode(&body); err != nil || body.Response.ID == "" {
		return SocialProfile{}, apperr.BadRequest("naver profile fetch failed")
	}

	return SocialProfile{
		ID:    body.Response.ID,
		Email: body.Response.Email,
		Phone: utils.NormalizeProviderPhone(body.Response.Mobile),
	}, nil
}
