package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyeonsu/market-auth/internal/apperr"
	"github.com/hyeonsu/market-auth/internal/utils"
)

const (
	kakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

// KakaoProvider implements SocialProvider against Kakao's OAuth endpoints.
// The URLs are fields so tests can point at a local server.
type KakaoProvider struct {
	ClientID   string
	TokenURL   string
	ProfileURL string
	Client     *http.Client
}

// NewKakaoProvider builds a provider with production endpoints and a
// bounded HTTP client; provider outages must not hold requests open.
func NewKakaoProvider(clientID string) *KakaoProvider {
	return &KakaoProvider{
		ClientID:   clientID,
		TokenURL:   kakaoTokenURL,
		ProfileURL: kakaoProfileURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *KakaoProvider) Name() string { return "kakao" }

// Exchange swaps the authorization code for a Kakao access token and
// fetches the member profile.
func (p *KakaoProvider) Exchange(ctx context.Context, in SocialAuthCode) (SocialProfile, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.ClientID},
		"redirect_uri": {in.RedirectURI},
		"code":         {in.Code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := p.Client.Do(req)
	if err != nil {
		return SocialProfile{}, apperr.Internal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		return SocialProfile{}, apperr.BadRequest("kakao token issuance failed")
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
		ID           json.Number `json:"id"`
		KakaoAccount struct {
			Email       string `json:"email"`
			PhoneNumber string `json:"phone_number"`
		} `json:"kakao_account"`
	}
	if err := json.NewDecoder(presp.Body).Decode(&body); err != nil || body.ID.String() == "" {
		return SocialProfile{}, apperr.BadRequest("kakao profile fetch failed")
	}

	return SocialProfile{
		ID:    body.ID.String(),
		Email: body.KakaoAccount.Email,
		Phone: utils.NormalizeProviderPhone(body.KakaoAccount.PhoneNumber),
	}, nil
}
