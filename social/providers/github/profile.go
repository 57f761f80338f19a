package github

import (
	"strconv"

	"github.com/goliatone/go-authist"
)

// githubUser is the subset of GET /user that maps onto a Profile.
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// pickEmail prefers the primary address, then any verified one.
func pickEmail(emails []githubEmail) (githubEmail, bool) {
	var fallback *githubEmail
	for i := range emails {
		switch {
		case emails[i].Primary:
			return emails[i], true
		case emails[i].Verified && fallback == nil:
			fallback = &emails[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return githubEmail{}, false
}

// toProfile falls back to the login when the account has no display name.
func (u githubUser) toProfile(email githubEmail) *authist.Profile {
	name := u.Name
	if name == "" {
		name = u.Login
	}

	return &authist.Profile{
		Provider:      providerName,
		ID:            strconv.FormatInt(u.ID, 10),
		Email:         email.Email,
		EmailVerified: email.Verified,
		DisplayName:   name,
		PhotoURL:      u.AvatarURL,
		Raw: map[string]any{
			"login":    u.Login,
			"html_url": u.HTMLURL,
		},
	}
}
