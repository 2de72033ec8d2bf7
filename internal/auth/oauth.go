package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

// GitHubUser is the part of GitHub's /user response the account service
// needs. Name and Email are empty when the user keeps them private.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GitHubProvider runs the OAuth2 authorization code flow against GitHub.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider configures the flow for a registered OAuth App.
// callbackURL must match the app's "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return NewGitHubProviderWithEndpoint(clientID, clientSecret, callbackURL, github.Endpoint, githubUserURL)
}

// NewGitHubProviderWithEndpoint is NewGitHubProvider with the OAuth endpoint
// and the profile URL overridden, for GitHub Enterprise or a test server.
func NewGitHubProviderWithEndpoint(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		userURL: userURL,
	}
}

// AuthURL is where the browser is sent to approve access. state is echoed
// back on the callback and must be checked against the value in the
// caller's cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and uses it to fetch
// the GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, oauthToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub user response: %w", err)
	}
	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, errors.New("auth: GitHub returned an incomplete user profile")
	}

	return &ghUser, nil
}
