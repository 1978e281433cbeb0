package providers

import (
	"golang.org/x/oauth2"

	"github.com/desertthunder/skysync/internal/models"
)

// GoogleDrive is the Google Drive backend. Credentials carry an OAuth token
// in the JSON form rclone stores it; the authorize flow mints one.
type GoogleDrive struct{ base }

func (GoogleDrive) Name() string       { return "google_drive" }
func (GoogleDrive) Title() string      { return "Google Drive" }
func (GoogleDrive) RcloneType() string { return "drive" }
func (GoogleDrive) UsesBuckets() bool  { return false }
func (GoogleDrive) ReadOnly() bool     { return false }

func (GoogleDrive) CredentialsSchema() Schema {
	return Schema{
		{Name: "client_id", Title: "OAuth Client ID", Type: TypeString},
		{Name: "client_secret", Title: "OAuth Client Secret", Type: TypeString, Secret: true},
		{Name: "token", Title: "Access Token (JSON)", Type: TypeString, Required: true, Secret: true},
	}
}

func (GoogleDrive) TaskSchema() Schema {
	return Schema{
		{Name: "team_drive", Title: "Shared Drive ID", Type: TypeString},
	}
}

// TaskExtra forwards a shared drive id into the remote section when set.
func (GoogleDrive) TaskExtra(task *models.SyncTask) map[string]any {
	if td, ok := task.Attributes()["team_drive"].(string); ok && td != "" {
		return map[string]any{"team_drive": td}
	}
	return nil
}

// OAuthConfig implements OAuthProvider.
func (GoogleDrive) OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{"https://www.googleapis.com/auth/drive"},
	}
}
