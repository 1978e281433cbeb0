package providers

import (
	"sort"
	"strings"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/shared"
)

// Provider describes one cloud storage backend well enough for skysync to
// validate stored records and generate rclone configuration for them.
type Provider interface {
	// Name is the stable identifier stored in credential records.
	Name() string

	// Title is the human-readable name used for display and sorting.
	Title() string

	// RcloneType is the backend type tag written into the generated config.
	RcloneType() string

	// UsesBuckets reports whether the backend scopes storage under buckets.
	UsesBuckets() bool

	// ReadOnly reports whether the backend can only be pulled from.
	ReadOnly() bool

	// CredentialsSchema describes the attributes a credential must carry.
	CredentialsSchema() Schema

	// TaskSchema describes provider-specific task attributes beyond
	// bucket/folder.
	TaskSchema() Schema

	// CredentialsExtra returns additional config keys derived from a
	// credential, merged into the generated remote section.
	CredentialsExtra(cred *models.Credential) map[string]any

	// TaskExtra returns additional config keys derived from a task.
	TaskExtra(task *models.SyncTask) map[string]any

	// PreSaveTask applies provider-specific business rules before a task is
	// persisted, appending to verrs. Only called once schema validation of
	// the attributes has passed.
	PreSaveTask(task *models.SyncTask, cred *models.Credential, verrs *shared.ValidationErrors)
}

// base provides no-op hook implementations for providers that don't need them.
type base struct{}

func (base) CredentialsExtra(*models.Credential) map[string]any { return nil }
func (base) TaskExtra(*models.SyncTask) map[string]any          { return nil }
func (base) PreSaveTask(*models.SyncTask, *models.Credential, *shared.ValidationErrors) {
}

// Registry resolves provider descriptors by name. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byName map[string]Provider
}

// NewRegistry builds a registry from an explicit provider list.
func NewRegistry(ps ...Provider) *Registry {
	byName := make(map[string]Provider, len(ps))
	for _, p := range ps {
		byName[p.Name()] = p
	}
	return &Registry{byName: byName}
}

// DefaultRegistry returns the registry with every built-in provider.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&S3{},
		&B2{},
		&AzureBlob{},
		&GoogleDrive{},
		&Dropbox{},
		&FTP{},
		&SFTP{},
		&WebDAV{},
		&HTTP{},
	)
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns every provider sorted by title, case-insensitively.
func (r *Registry) All() []Provider {
	ps := make([]Provider, 0, len(r.byName))
	for _, p := range r.byName {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		return strings.ToLower(ps[i].Title()) < strings.ToLower(ps[j].Title())
	})
	return ps
}

// Descriptor is the serializable view of a provider for CLI output.
type Descriptor struct {
	Name              string `json:"name"`
	Title             string `json:"title"`
	UsesBuckets       bool   `json:"buckets"`
	ReadOnly          bool   `json:"readonly"`
	CredentialsSchema Schema `json:"credentials_schema"`
	TaskSchema        Schema `json:"task_schema"`
}

// Describe builds the serializable view of a provider.
func Describe(p Provider) Descriptor {
	return Descriptor{
		Name:              p.Name(),
		Title:             p.Title(),
		UsesBuckets:       p.UsesBuckets(),
		ReadOnly:          p.ReadOnly(),
		CredentialsSchema: p.CredentialsSchema(),
		TaskSchema:        p.TaskSchema(),
	}
}
