package providers

import (
	"strings"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/shared"
)

// SFTP is the SSH file transfer backend.
type SFTP struct{ base }

func (SFTP) Name() string       { return "sftp" }
func (SFTP) Title() string      { return "SFTP" }
func (SFTP) RcloneType() string { return "sftp" }
func (SFTP) UsesBuckets() bool  { return false }
func (SFTP) ReadOnly() bool     { return false }

func (SFTP) CredentialsSchema() Schema {
	return Schema{
		{Name: "host", Title: "Host", Type: TypeString, Required: true},
		{Name: "port", Title: "Port", Type: TypeInt},
		{Name: "user", Title: "Username", Type: TypeString, Required: true},
		{Name: "pass", Title: "Password", Type: TypeString, Secret: true},
		{Name: "key_file", Title: "Private Key File", Type: TypeString},
	}
}

func (SFTP) TaskSchema() Schema { return nil }

// CredentialsExtra fills in the default port when the credential omits it.
func (SFTP) CredentialsExtra(cred *models.Credential) map[string]any {
	if _, ok := cred.Attribute("port"); !ok {
		return map[string]any{"port": 22}
	}
	return nil
}

// PreSaveTask rejects tilde-prefixed folders; rclone resolves sftp paths
// relative to the login directory, so "~" never means what users expect.
func (SFTP) PreSaveTask(task *models.SyncTask, _ *models.Credential, verrs *shared.ValidationErrors) {
	if strings.HasPrefix(task.Folder(), "~") {
		verrs.Add("folder", "folder must not start with '~'; paths are relative to the login directory")
	}
}
