package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/shared"
)

// TaskRepository implements models.Repository[*models.SyncTask].
//
// The two encryption secrets go through the secret store on every write and
// read, so rows only ever hold ciphertext. Schedule fields are stored as
// their five cron columns.
type TaskRepository struct {
	db      *sql.DB
	secrets shared.SecretStore
}

// NewTaskRepository creates a new TaskRepository with the given database
// connection and secret store.
func NewTaskRepository(db *sql.DB, secrets shared.SecretStore) *TaskRepository {
	return &TaskRepository{db: db, secrets: secrets}
}

// Create inserts a new task into the database with generated ID and sequence
func (r *TaskRepository) Create(task *models.SyncTask) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	task.SetID(id)
	task.SetSequence(sequence)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attrs, err := json.Marshal(task.Attributes())
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	password, salt, err := r.sealSecrets(task)
	if err != nil {
		return err
	}

	sched := task.Schedule()
	query := `
		INSERT INTO tasks (
			id, sequence, description, direction, transfer_mode, path, credential_id,
			encryption, filename_encryption, encryption_password, encryption_salt,
			minute, hour, daymonth, month, dayweek,
			attributes, enabled, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		task.Description(),
		string(task.Direction()),
		string(task.TransferMode()),
		task.Path(),
		task.CredentialID(),
		task.Encryption(),
		task.FilenameEncryption(),
		password,
		salt,
		sched.Minute,
		sched.Hour,
		sched.DayOfMonth,
		sched.Month,
		sched.DayOfWeek,
		string(attrs),
		task.Enabled(),
		task.CreatedAt(),
		task.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID, excluding soft-deleted tasks. Encryption
// secrets come back decrypted.
func (r *TaskRepository) Get(id string) (*models.SyncTask, error) {
	query := taskSelect + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanTask(r.db.QueryRow(query, id))
}

// Update modifies an existing task in the database
func (r *TaskRepository) Update(task *models.SyncTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attrs, err := json.Marshal(task.Attributes())
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	password, salt, err := r.sealSecrets(task)
	if err != nil {
		return err
	}

	now := time.Now()
	task.SetUpdatedAt(now)

	sched := task.Schedule()
	query := `
		UPDATE tasks
		SET description = ?, direction = ?, transfer_mode = ?, path = ?, credential_id = ?,
		    encryption = ?, filename_encryption = ?, encryption_password = ?, encryption_salt = ?,
		    minute = ?, hour = ?, daymonth = ?, month = ?, dayweek = ?,
		    attributes = ?, enabled = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		task.Description(),
		string(task.Direction()),
		string(task.TransferMode()),
		task.Path(),
		task.CredentialID(),
		task.Encryption(),
		task.FilenameEncryption(),
		password,
		salt,
		sched.Minute,
		sched.Hour,
		sched.DayOfMonth,
		sched.Month,
		sched.DayOfWeek,
		string(attrs),
		task.Enabled(),
		now,
		task.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.ID())
	}

	return nil
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tasks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	return nil
}

// List retrieves all tasks matching the given criteria, excluding soft-deleted tasks
func (r *TaskRepository) List(criteria map[string]any) ([]*models.SyncTask, error) {
	query := taskSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if credentialID, ok := criteria["credential_id"].(string); ok && credentialID != "" {
		query += " AND credential_id = ?"
		args = append(args, credentialID)
	}

	if enabled, ok := criteria["enabled"].(bool); ok {
		query += " AND enabled = ?"
		args = append(args, enabled)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.SyncTask
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

const taskSelect = `
	SELECT id, sequence, description, direction, transfer_mode, path, credential_id,
	       encryption, filename_encryption, encryption_password, encryption_salt,
	       minute, hour, daymonth, month, dayweek,
	       attributes, enabled, created_at, updated_at, deleted_at
	FROM tasks
`

func (r *TaskRepository) sealSecrets(task *models.SyncTask) (password, salt string, err error) {
	password, err = r.secrets.Encrypt(task.EncryptionPassword())
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt password: %w", err)
	}
	salt, err = r.secrets.Encrypt(task.EncryptionSalt())
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt salt: %w", err)
	}
	return password, salt, nil
}

// scanner abstracts sql.Row and sql.Rows for a shared scan path.
type scanner interface {
	Scan(dest ...any) error
}

func (r *TaskRepository) scanTask(row scanner) (*models.SyncTask, error) {
	var (
		id                 string
		sequence           int
		description        string
		direction          string
		transferMode       string
		path               string
		credentialID       string
		encryption         bool
		filenameEncryption bool
		sealedPassword     string
		sealedSalt         string
		minute             string
		hour               string
		dayOfMonth         string
		month              string
		dayOfWeek          string
		attrsRaw           string
		enabled            bool
		createdAt          time.Time
		updatedAt          time.Time
		deletedAt          sql.NullTime
	)

	err := row.Scan(&id, &sequence, &description, &direction, &transferMode, &path, &credentialID,
		&encryption, &filenameEncryption, &sealedPassword, &sealedSalt,
		&minute, &hour, &dayOfMonth, &month, &dayOfWeek,
		&attrsRaw, &enabled, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	attrs := map[string]any{}
	if err := json.Unmarshal([]byte(attrsRaw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}

	password, err := r.secrets.Decrypt(sealedPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt password: %w", err)
	}
	salt, err := r.secrets.Decrypt(sealedSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt salt: %w", err)
	}

	task := models.NewSyncTask(sequence, description, models.Direction(direction), models.TransferMode(transferMode), path, credentialID)
	task.SetID(id)
	task.SetEncryption(encryption)
	task.SetFilenameEncryption(filenameEncryption)
	task.SetEncryptionPassword(password)
	task.SetEncryptionSalt(salt)
	task.SetSchedule(models.Schedule{
		Minute:     minute,
		Hour:       hour,
		DayOfMonth: dayOfMonth,
		Month:      month,
		DayOfWeek:  dayOfWeek,
	})
	task.SetAttributes(attrs)
	task.SetEnabled(enabled)
	task.SetCreatedAt(createdAt)
	task.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		task.SetDeletedAt(&deletedAt.Time)
	}

	return task, nil
}
