package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/shared"
)

// CredentialRepository implements models.Repository[*models.Credential].
//
// Attributes are stored as a JSON object; their schema belongs to the
// provider registry, not the persistence layer.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new credential into the database with generated ID and sequence
func (r *CredentialRepository) Create(cred *models.Credential) error {
	sequence, err := NextSequence(r.db, "credentials")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	cred.SetID(id)
	cred.SetSequence(sequence)

	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attrs, err := json.Marshal(cred.Attributes())
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	query := `
		INSERT INTO credentials (id, sequence, name, provider, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		cred.Name(),
		cred.Provider(),
		string(attrs),
		cred.CreatedAt(),
		cred.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

// Get retrieves a credential by ID, excluding soft-deleted credentials
func (r *CredentialRepository) Get(id string) (*models.Credential, error) {
	query := `
		SELECT id, sequence, name, provider, attributes, created_at, updated_at, deleted_at
		FROM credentials
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing credential in the database
func (r *CredentialRepository) Update(cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attrs, err := json.Marshal(cred.Attributes())
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now()
	cred.SetUpdatedAt(now)

	query := `
		UPDATE credentials
		SET name = ?, provider = ?, attributes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		cred.Name(),
		cred.Provider(),
		string(attrs),
		now,
		cred.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrCredentialNotFound, cred.ID())
	}

	return nil
}

// Delete soft-deletes a credential by ID
func (r *CredentialRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE credentials
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrCredentialNotFound, id)
	}

	return nil
}

// List retrieves all credentials matching the given criteria, excluding soft-deleted credentials
func (r *CredentialRepository) List(criteria map[string]any) ([]*models.Credential, error) {
	query := `
		SELECT id, sequence, name, provider, attributes, created_at, updated_at, deleted_at
		FROM credentials
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if provider, ok := criteria["provider"].(string); ok && provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		cred, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return creds, nil
}

func (r *CredentialRepository) scanOne(row *sql.Row) (*models.Credential, error) {
	var (
		id        string
		sequence  int
		name      string
		provider  string
		attrsRaw  string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &provider, &attrsRaw, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	return buildCredential(id, sequence, name, provider, attrsRaw, createdAt, updatedAt, deletedAt)
}

func (r *CredentialRepository) scanRow(rows *sql.Rows) (*models.Credential, error) {
	var (
		id        string
		sequence  int
		name      string
		provider  string
		attrsRaw  string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &name, &provider, &attrsRaw, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	return buildCredential(id, sequence, name, provider, attrsRaw, createdAt, updatedAt, deletedAt)
}

func buildCredential(id string, sequence int, name, provider, attrsRaw string, createdAt, updatedAt time.Time, deletedAt sql.NullTime) (*models.Credential, error) {
	attrs := map[string]any{}
	if err := json.Unmarshal([]byte(attrsRaw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}

	cred := models.NewCredential(sequence, name, provider, attrs)
	cred.SetID(id)
	cred.SetCreatedAt(createdAt)
	cred.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		cred.SetDeletedAt(&deletedAt.Time)
	}

	return cred, nil
}
