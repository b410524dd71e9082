package oauth

import (
	"context"
	"fmt"
	"strings"
)

// Identity is the provider-agnostic shape extracted from a profile.
// Username and Email are always non-empty; Username is the stable
// local-account key. Fullname may be empty for GitHub users who have
// not set a display name.
type Identity struct {
	Username string
	Email    string
	Fullname string
}

// ExtractIdentity normalizes a provider profile into an Identity,
// applying the provider's fallback rules. GitHub may need an extra
// emails-endpoint call when the profile hides the email address.
func (c *Client) ExtractIdentity(ctx context.Context, provider *Provider, info *UserInfo, accessToken string) (Identity, error) {
	switch provider.ID {
	case ProviderGitHub:
		return c.extractGitHubIdentity(ctx, provider, info, accessToken)
	case ProviderGoogle:
		return extractGoogleIdentity(info)
	default:
		return Identity{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider.ID)
	}
}

// extractGitHubIdentity keys the account on the GitHub login. Email
// fallback order: profile email, primary+verified address from the
// emails endpoint, first listed address, synthesized noreply address.
func (c *Client) extractGitHubIdentity(ctx context.Context, provider *Provider, info *UserInfo, accessToken string) (Identity, error) {
	if info.Login == "" {
		return Identity{}, ErrNoUserData
	}

	email := info.Email
	if email == "" {
		emails, err := c.FetchUserEmails(ctx, provider, accessToken)
		if err != nil {
			return Identity{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
		if email == "" && len(emails) > 0 {
			email = emails[0].Email
		}
		if email == "" {
			email = info.Login + "@users.noreply.github.com"
		}
	}

	return Identity{
		Username: info.Login,
		Email:    email,
		Fullname: info.Name,
	}, nil
}

// extractGoogleIdentity keys the account on the email address: the
// username is its local part with dots replaced by underscores, and
// the fullname defaults to the local part when Google sends no name.
func extractGoogleIdentity(info *UserInfo) (Identity, error) {
	if info.Email == "" {
		return Identity{}, ErrNoUserData
	}

	local := strings.SplitN(info.Email, "@", 2)[0]
	fullname := info.Name
	if fullname == "" {
		fullname = local
	}

	return Identity{
		Username: strings.ReplaceAll(local, ".", "_"),
		Email:    info.Email,
		Fullname: fullname,
	}, nil
}
