package providers

import (
	"github.com/desertthunder/skysync/internal/models"
)

// WebDAV is the generic WebDAV backend.
type WebDAV struct{ base }

func (WebDAV) Name() string       { return "webdav" }
func (WebDAV) Title() string      { return "WebDAV" }
func (WebDAV) RcloneType() string { return "webdav" }
func (WebDAV) UsesBuckets() bool  { return false }
func (WebDAV) ReadOnly() bool     { return false }

func (WebDAV) CredentialsSchema() Schema {
	return Schema{
		{Name: "url", Title: "URL", Type: TypeString, Required: true},
		{Name: "vendor", Title: "Vendor", Type: TypeString},
		{Name: "user", Title: "Username", Type: TypeString},
		{Name: "pass", Title: "Password", Type: TypeString, Secret: true},
	}
}

func (WebDAV) TaskSchema() Schema { return nil }

// CredentialsExtra defaults the vendor so rclone doesn't prompt for one.
func (WebDAV) CredentialsExtra(cred *models.Credential) map[string]any {
	if _, ok := cred.Attribute("vendor"); !ok {
		return map[string]any{"vendor": "other"}
	}
	return nil
}
