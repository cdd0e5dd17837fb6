package valueobject

import "errors"

var ErrMissingAccessToken = errors.New("access token is required")

// TokenPair is the persisted session envelope. The refresh token is carried
// along but never used by the controller itself.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func NewTokenPair(accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
