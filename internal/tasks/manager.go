package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/skysync/internal/jobs"
	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/rclone"
	"github.com/desertthunder/skysync/internal/shared"
)

// Executor abstracts the rclone layer so the manager can be tested without
// spawning subprocesses. *rclone.Executor is the production implementation.
type Executor interface {
	Run(ctx context.Context, job rclone.Job, task *models.SyncTask) error
	Lister
}

// RunHandle is returned as soon as a run has been admitted. Done yields the
// run's outcome exactly once; Job streams its progress while it is in flight.
type RunHandle struct {
	RunID string
	Job   *jobs.Job
	Done  <-chan error
}

// Manager owns credential and task lifecycle and drives run execution.
type Manager struct {
	credentials models.Repository[*models.Credential]
	tasks       models.Repository[*models.SyncTask]
	runs        models.Repository[*models.RunRecord]
	registry    *providers.Registry
	executor    Executor
	validator   *Validator
	logger      *log.Logger

	onTaskChange func()
}

// NewManager wires a Manager from its collaborators.
func NewManager(
	credentials models.Repository[*models.Credential],
	tasks models.Repository[*models.SyncTask],
	runs models.Repository[*models.RunRecord],
	registry *providers.Registry,
	executor Executor,
	logger *log.Logger,
) *Manager {
	return &Manager{
		credentials: credentials,
		tasks:       tasks,
		runs:        runs,
		registry:    registry,
		executor:    executor,
		validator:   NewValidator(registry, executor),
		logger:      logger,
	}
}

// OnTaskChange registers a callback invoked after every successful task
// create, update or delete, so the scheduler can re-arm its timers.
func (m *Manager) OnTaskChange(fn func()) {
	m.onTaskChange = fn
}

func (m *Manager) taskChanged() {
	if m.onTaskChange != nil {
		m.onTaskChange()
	}
}

// Providers returns every registered provider descriptor, sorted by title.
func (m *Manager) Providers() []providers.Descriptor {
	all := m.registry.All()
	descriptors := make([]providers.Descriptor, len(all))
	for i, p := range all {
		descriptors[i] = providers.Describe(p)
	}
	return descriptors
}

// CreateCredential validates attributes against the provider's schema and
// persists a new credential.
func (m *Manager) CreateCredential(name, provider string, attrs map[string]any) (*models.Credential, error) {
	p, ok := m.registry.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProviderUnknown, provider)
	}
	if err := p.CredentialsSchema().Validate(attrs, false).OrNil(); err != nil {
		return nil, err
	}

	cred := models.NewCredential(0, name, provider, attrs)
	if err := m.credentials.Create(cred); err != nil {
		return nil, err
	}
	m.logger.Info("credential created", "id", cred.ID(), "provider", provider)
	return cred, nil
}

// GetCredential retrieves a credential by ID.
func (m *Manager) GetCredential(id string) (*models.Credential, error) {
	return m.credentials.Get(id)
}

// ListCredentials retrieves credentials matching the criteria.
func (m *Manager) ListCredentials(criteria map[string]any) ([]*models.Credential, error) {
	return m.credentials.List(criteria)
}

// UpdateCredential re-validates the attributes and persists the change.
func (m *Manager) UpdateCredential(cred *models.Credential) error {
	p, ok := m.registry.Get(cred.Provider())
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrProviderUnknown, cred.Provider())
	}
	if err := p.CredentialsSchema().Validate(cred.Attributes(), false).OrNil(); err != nil {
		return err
	}
	return m.credentials.Update(cred)
}

// DeleteCredential removes a credential unless tasks still reference it.
func (m *Manager) DeleteCredential(id string) error {
	dependents, err := m.tasks.List(map[string]any{"credential_id": id})
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		return fmt.Errorf("%w: credential is used by %d task(s)", shared.ErrInvalidInput, len(dependents))
	}
	return m.credentials.Delete(id)
}

// VerifyCredential checks that a credential actually works by listing the
// backend root through an ad-hoc task.
func (m *Manager) VerifyCredential(ctx context.Context, id string) error {
	cred, err := m.credentials.Get(id)
	if err != nil {
		return err
	}
	probe := models.NewSyncTask(0, "", models.DirectionPull, models.ModeSync, "/", cred.ID())
	probe.SetCredential(cred)

	if _, err := m.executor.List(ctx, probe, ""); err != nil {
		return fmt.Errorf("credential verification failed: %w", err)
	}
	return nil
}

// CreateTask validates the task, including provider rules and the remote
// pre-flight, then persists it.
func (m *Manager) CreateTask(ctx context.Context, task *models.SyncTask) error {
	if err := m.extend(task); err != nil {
		return err
	}
	if err := m.validator.ValidateTask(ctx, task); err != nil {
		return err
	}
	if err := m.tasks.Create(task); err != nil {
		return err
	}
	m.logger.Info("task created", "id", task.ID(), "description", task.Description())
	m.taskChanged()
	return nil
}

// UpdateTask re-runs full validation and persists the change.
func (m *Manager) UpdateTask(ctx context.Context, task *models.SyncTask) error {
	if err := m.extend(task); err != nil {
		return err
	}
	if err := m.validator.ValidateTask(ctx, task); err != nil {
		return err
	}
	if err := m.tasks.Update(task); err != nil {
		return err
	}
	m.taskChanged()
	return nil
}

// DeleteTask removes a task by ID.
func (m *Manager) DeleteTask(id string) error {
	if err := m.tasks.Delete(id); err != nil {
		return err
	}
	m.taskChanged()
	return nil
}

// GetTask retrieves a task with its credential resolved.
func (m *Manager) GetTask(id string) (*models.SyncTask, error) {
	task, err := m.tasks.Get(id)
	if err != nil {
		return nil, err
	}
	if err := m.extend(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks retrieves tasks matching the criteria, each with its credential
// resolved.
func (m *Manager) ListTasks(criteria map[string]any) ([]*models.SyncTask, error) {
	list, err := m.tasks.List(criteria)
	if err != nil {
		return nil, err
	}
	for _, task := range list {
		if err := m.extend(task); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// extend resolves the task's credential reference.
func (m *Manager) extend(task *models.SyncTask) error {
	cred, err := m.credentials.Get(task.CredentialID())
	if err != nil {
		return fmt.Errorf("failed to resolve credential %s: %w", task.CredentialID(), err)
	}
	task.SetCredential(cred)
	return nil
}

// Run starts a task execution. A RUNNING history record is written before the
// transfer begins and finalized when it ends; the returned handle exposes the
// record ID, the live job and a Done channel with the outcome. Log output is
// mirrored to sink when it is non-nil.
func (m *Manager) Run(ctx context.Context, taskID string, sink io.Writer) (*RunHandle, error) {
	task, err := m.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	run := models.NewRunRecord(0, task.ID())
	if err := m.runs.Create(run); err != nil {
		return nil, err
	}

	job := jobs.New(task.ID(), sink)
	done := make(chan error, 1)

	go func() {
		runErr := m.executor.Run(ctx, job, task)
		job.Close()

		if runErr != nil {
			run.Finish(models.RunFailed, runErr.Error())
			m.logger.Error("run failed", "run", run.ID(), "task", task.ID(), "error", runErr)
		} else {
			run.Finish(models.RunSuccess, "")
			m.logger.Info("run finished", "run", run.ID(), "task", task.ID())
		}
		if err := m.runs.Update(run); err != nil {
			m.logger.Error("failed to record run outcome", "run", run.ID(), "error", err)
		}

		done <- runErr
	}()

	return &RunHandle{RunID: run.ID(), Job: job, Done: done}, nil
}

// ListRuns retrieves run history, most recent first.
func (m *Manager) ListRuns(criteria map[string]any) ([]*models.RunRecord, error) {
	return m.runs.List(criteria)
}

// ListDirectory lists a remote path for a task. An empty path defaults to the
// task's own bucket/folder location.
func (m *Manager) ListDirectory(ctx context.Context, taskID, path string) ([]models.RemoteEntry, error) {
	task, err := m.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = strings.Trim(task.Bucket()+"/"+task.Folder(), "/")
	}
	return m.executor.List(ctx, task, path)
}

// ListBuckets lists the top-level buckets reachable with a credential.
func (m *Manager) ListBuckets(ctx context.Context, credentialID string) ([]models.RemoteEntry, error) {
	cred, err := m.credentials.Get(credentialID)
	if err != nil {
		return nil, err
	}
	p, ok := m.registry.Get(cred.Provider())
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProviderUnknown, cred.Provider())
	}
	if !p.UsesBuckets() {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoBuckets, p.Title())
	}

	probe := models.NewSyncTask(0, "", models.DirectionPull, models.ModeSync, "/", cred.ID())
	probe.SetCredential(cred)

	entries, err := m.executor.List(ctx, probe, "")
	if err != nil {
		return nil, err
	}

	buckets := entries[:0]
	for _, entry := range entries {
		if entry.IsDir {
			buckets = append(buckets, entry)
		}
	}
	return buckets, nil
}
