package providers

import (
	"golang.org/x/oauth2"
)

// Dropbox is the Dropbox backend.
type Dropbox struct{ base }

func (Dropbox) Name() string       { return "dropbox" }
func (Dropbox) Title() string      { return "Dropbox" }
func (Dropbox) RcloneType() string { return "dropbox" }
func (Dropbox) UsesBuckets() bool  { return false }
func (Dropbox) ReadOnly() bool     { return false }

func (Dropbox) CredentialsSchema() Schema {
	return Schema{
		{Name: "client_id", Title: "App Key", Type: TypeString},
		{Name: "client_secret", Title: "App Secret", Type: TypeString, Secret: true},
		{Name: "token", Title: "Access Token (JSON)", Type: TypeString, Required: true, Secret: true},
	}
}

func (Dropbox) TaskSchema() Schema { return nil }

// OAuthConfig implements OAuthProvider.
func (Dropbox) OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.dropbox.com/oauth2/authorize",
			TokenURL: "https://api.dropboxapi.com/oauth2/token",
		},
	}
}
