package providers

import (
	"github.com/desertthunder/skysync/internal/models"
)

// S3 is the Amazon S3 backend (and S3-compatible endpoints).
type S3 struct{ base }

func (S3) Name() string       { return "s3" }
func (S3) Title() string      { return "Amazon S3" }
func (S3) RcloneType() string { return "s3" }
func (S3) UsesBuckets() bool  { return true }
func (S3) ReadOnly() bool     { return false }

func (S3) CredentialsSchema() Schema {
	return Schema{
		{Name: "access_key_id", Title: "Access Key ID", Type: TypeString, Required: true},
		{Name: "secret_access_key", Title: "Secret Access Key", Type: TypeString, Required: true, Secret: true},
		{Name: "region", Title: "Region", Type: TypeString},
		{Name: "endpoint", Title: "Endpoint URL", Type: TypeString},
	}
}

func (S3) TaskSchema() Schema {
	return Schema{
		{Name: "storage_class", Title: "Storage Class", Type: TypeString},
	}
}

// CredentialsExtra pins env_auth off so rclone never falls back to ambient
// AWS credentials on the host.
func (S3) CredentialsExtra(*models.Credential) map[string]any {
	return map[string]any{"env_auth": false}
}
