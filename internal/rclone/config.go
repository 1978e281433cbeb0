package rclone

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/shared"
)

// Config is a generated, ephemeral rclone configuration. Remote is the
// effective remote argument for the transfer ("remote:path", or "encrypted:/"
// when the task wraps the backend in a crypt remote).
type Config struct {
	Path   string
	Remote string
}

// Close removes the config file. Callers must defer this as soon as
// BuildConfig returns: the file holds obscured secrets in plaintext-equivalent
// form and must not outlive the run.
func (c *Config) Close() error {
	if c.Path == "" {
		return nil
	}
	err := os.Remove(c.Path)
	c.Path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BuildConfig renders the task and its resolved credential into a temporary
// rclone config file, owner-read/write only.
//
// The [remote] section merges, in order: credential attributes, the rclone
// backend type, provider credential extras, then task attributes and provider
// task extras. A "pass" key present after the credential merge is obscured.
// When the task requests encryption an [encrypted] crypt section wraps the
// base remote and becomes the effective remote.
func BuildConfig(registry *providers.Registry, task *models.SyncTask) (*Config, error) {
	cred := task.Credential()
	if cred == nil {
		return nil, fmt.Errorf("%w: task %s has no resolved credential", shared.ErrInvalidInput, task.ID())
	}
	provider, ok := registry.Get(cred.Provider())
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProviderUnknown, cred.Provider())
	}

	attrs := map[string]any{}
	for k, v := range cred.Attributes() {
		attrs[k] = v
	}
	attrs["type"] = provider.RcloneType()
	for k, v := range provider.CredentialsExtra(cred) {
		attrs[k] = v
	}
	if pass, ok := attrs["pass"].(string); ok {
		obscured, err := Obscure(pass)
		if err != nil {
			return nil, err
		}
		attrs["pass"] = obscured
	}

	for k, v := range task.Attributes() {
		attrs[k] = v
	}
	for k, v := range provider.TaskExtra(task) {
		attrs[k] = v
	}

	remote := "remote:" + strings.Trim(task.Bucket()+"/"+task.Folder(), "/")

	var b strings.Builder
	if task.Encryption() {
		password, err := Obscure(task.EncryptionPassword())
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "[encrypted]\n")
		fmt.Fprintf(&b, "type = crypt\n")
		fmt.Fprintf(&b, "remote = %s\n", remote)
		if task.FilenameEncryption() {
			fmt.Fprintf(&b, "filename_encryption = standard\n")
		} else {
			fmt.Fprintf(&b, "filename_encryption = off\n")
		}
		fmt.Fprintf(&b, "password = %s\n", password)
		if salt := task.EncryptionSalt(); salt != "" {
			password2, err := Obscure(salt)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "password2 = %s\n", password2)
		}
		fmt.Fprintf(&b, "\n")
		remote = "encrypted:/"
	}

	fmt.Fprintf(&b, "[remote]\n")
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %v\n", k, attrs[k])
	}

	f, err := os.CreateTemp("", "skysync-rclone-*.conf")
	if err != nil {
		return nil, fmt.Errorf("failed to create config file: %w", err)
	}
	cfg := &Config{Path: f.Name(), Remote: remote}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		cfg.Close()
		return nil, fmt.Errorf("failed to restrict config file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		cfg.Close()
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		cfg.Close()
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfg, nil
}
