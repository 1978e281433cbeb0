package providers

// HTTP is the read-only HTTP directory backend. Tasks can only pull from it.
type HTTP struct{ base }

func (HTTP) Name() string       { return "http" }
func (HTTP) Title() string      { return "HTTP" }
func (HTTP) RcloneType() string { return "http" }
func (HTTP) UsesBuckets() bool  { return false }
func (HTTP) ReadOnly() bool     { return true }

func (HTTP) CredentialsSchema() Schema {
	return Schema{
		{Name: "url", Title: "URL", Type: TypeString, Required: true},
	}
}

func (HTTP) TaskSchema() Schema { return nil }
