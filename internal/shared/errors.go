package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Provider and registry errors
	ErrProviderUnknown  = fmt.Errorf("unknown provider")
	ErrProviderReadOnly = fmt.Errorf("provider is read-only")
	ErrNoBuckets        = fmt.Errorf("provider does not use buckets")

	// Entity errors
	ErrCredentialNotFound = fmt.Errorf("credential not found")
	ErrTaskNotFound       = fmt.Errorf("task not found")

	// Execution errors
	ErrRcloneFailed = fmt.Errorf("rclone failed")
	ErrLockBusy     = fmt.Errorf("another run is already queued for this task")

	// Secret store errors
	ErrSecretDecrypt = fmt.Errorf("secret decryption failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
