package models

// User is the account returned by the login and signup endpoints.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenPair holds the session credentials.
// The access token is short-lived; the refresh token mints new access tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is set.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
