package tasks

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/shared"
)

// Lister is the slice of the executor the validator needs for pre-flight
// remote checks.
type Lister interface {
	List(ctx context.Context, task *models.SyncTask, path string) ([]models.RemoteEntry, error)
}

// Validator checks a task against its provider's rules before it is saved.
type Validator struct {
	registry *providers.Registry
	lister   Lister
}

// NewValidator creates a Validator. lister may be nil, which skips the remote
// folder pre-flight (used when validating offline).
func NewValidator(registry *providers.Registry, lister Lister) *Validator {
	return &Validator{registry: registry, lister: lister}
}

// ValidateTask runs every check against a task whose credential has been
// resolved. Failures are accumulated so the caller sees all of them at once;
// the remote pre-flight only runs when everything cheaper has passed.
func (v *Validator) ValidateTask(ctx context.Context, task *models.SyncTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	cred := task.Credential()
	if cred == nil {
		return fmt.Errorf("%w: task credential not resolved", shared.ErrInvalidInput)
	}
	provider, ok := v.registry.Get(cred.Provider())
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrProviderUnknown, cred.Provider())
	}

	verrs := &shared.ValidationErrors{}

	if task.Direction() == models.DirectionPush && provider.ReadOnly() {
		verrs.Addf("direction", "%s is read-only and cannot be pushed to", provider.Title())
	}

	if task.Encryption() && task.EncryptionPassword() == "" {
		verrs.Add("encryption_password", "required when encryption is enabled")
	}

	if !filepath.IsAbs(task.Path()) {
		verrs.Add("path", "must be an absolute path")
	} else if _, err := os.Stat(task.Path()); err != nil {
		verrs.Addf("path", "local path is not accessible: %v", err)
	}

	// task attributes may carry extra backend keys beyond the schema;
	// credentials stay strict
	attrErrs := taskSchema(provider).Validate(task.Attributes(), true)
	verrs.AddChild("attributes", attrErrs)

	if !attrErrs.HasErrors() {
		provider.PreSaveTask(task, cred, verrs)
	}

	if !verrs.HasErrors() && v.lister != nil {
		v.checkRemoteFolder(ctx, task, verrs)
	}

	return verrs.OrNil()
}

// taskSchema combines the generic task attribute fields with the provider's
// own. Buckets are required exactly when the backend scopes storage by them.
func taskSchema(p providers.Provider) providers.Schema {
	schema := providers.Schema{}
	if p.UsesBuckets() {
		schema = append(schema, providers.Field{Name: "bucket", Title: "Bucket", Type: providers.TypeString, Required: true})
	}
	schema = append(schema, providers.Field{Name: "folder", Title: "Folder", Type: providers.TypeString})
	return append(schema, p.TaskSchema()...)
}

// checkRemoteFolder verifies a pull task's source folder actually exists by
// listing its parent. Push targets are created by the tool on demand, so only
// pulls get the pre-flight.
func (v *Validator) checkRemoteFolder(ctx context.Context, task *models.SyncTask, verrs *shared.ValidationErrors) {
	if task.Direction() != models.DirectionPull {
		return
	}
	folder := strings.TrimRight(task.Folder(), "/")
	if folder == "" {
		return
	}

	parent := path.Dir(folder)
	if parent == "." || parent == "/" {
		parent = ""
	}
	base := path.Base(folder)

	listPath := strings.Trim(task.Bucket()+"/"+parent, "/")
	entries, err := v.lister.List(ctx, task, listPath)
	if err != nil {
		verrs.Addf("attributes.folder", "failed to list remote directory: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.Name == base {
			if !entry.IsDir {
				verrs.Add("attributes.folder", "this is not a directory")
			}
			return
		}
	}
	verrs.Add("attributes.folder", "directory does not exist")
}
