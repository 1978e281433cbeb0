package providers

import (
	"github.com/desertthunder/skysync/internal/models"
)

// FTP is the plain FTP backend. The pass attribute is obscured by the config
// builder before it reaches the generated file.
type FTP struct{ base }

func (FTP) Name() string       { return "ftp" }
func (FTP) Title() string      { return "FTP" }
func (FTP) RcloneType() string { return "ftp" }
func (FTP) UsesBuckets() bool  { return false }
func (FTP) ReadOnly() bool     { return false }

func (FTP) CredentialsSchema() Schema {
	return Schema{
		{Name: "host", Title: "Host", Type: TypeString, Required: true},
		{Name: "port", Title: "Port", Type: TypeInt},
		{Name: "user", Title: "Username", Type: TypeString, Required: true},
		{Name: "pass", Title: "Password", Type: TypeString, Required: true, Secret: true},
	}
}

func (FTP) TaskSchema() Schema { return nil }

// CredentialsExtra fills in the default port when the credential omits it.
func (FTP) CredentialsExtra(cred *models.Credential) map[string]any {
	if _, ok := cred.Attribute("port"); !ok {
		return map[string]any{"port": 21}
	}
	return nil
}
