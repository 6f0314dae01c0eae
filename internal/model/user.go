package model

// UserInfo is the profile decoded from the identity provider.
type UserInfo struct {
	Sub           string   `json:"sub"`
	Username      string   `json:"username,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	PhoneNumber   string   `json:"phone_number,omitempty"`
	Picture       string   `json:"picture,omitempty"`
	Name          string   `json:"name,omitempty"`
	GivenName     string   `json:"given_name,omitempty"`
	FamilyName    string   `json:"family_name,omitempty"`
	Groups        []string `json:"groups,omitempty"`
}

// ProviderTokens is the token set returned by the identity provider's
// token endpoint during the authorization-code exchange.
type ProviderTokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
