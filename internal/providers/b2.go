package providers

import (
	"regexp"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/shared"
)

var b2BucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{4,48}[a-z0-9]$`)

// B2 is the Backblaze B2 backend.
type B2 struct{ base }

func (B2) Name() string       { return "b2" }
func (B2) Title() string      { return "Backblaze B2" }
func (B2) RcloneType() string { return "b2" }
func (B2) UsesBuckets() bool  { return true }
func (B2) ReadOnly() bool     { return false }

func (B2) CredentialsSchema() Schema {
	return Schema{
		{Name: "account", Title: "Account ID", Type: TypeString, Required: true},
		{Name: "key", Title: "Application Key", Type: TypeString, Required: true, Secret: true},
	}
}

func (B2) TaskSchema() Schema { return nil }

// PreSaveTask enforces B2's bucket naming rules, which rclone itself only
// reports at transfer time.
func (B2) PreSaveTask(task *models.SyncTask, _ *models.Credential, verrs *shared.ValidationErrors) {
	if bucket := task.Bucket(); bucket != "" && !b2BucketName.MatchString(bucket) {
		verrs.Add("bucket", "B2 bucket names are 6-50 lowercase letters, digits and dashes")
	}
}
