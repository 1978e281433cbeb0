package providers

// AzureBlob is the Microsoft Azure Blob Storage backend. Containers map onto
// the generic bucket attribute.
type AzureBlob struct{ base }

func (AzureBlob) Name() string       { return "azureblob" }
func (AzureBlob) Title() string      { return "Microsoft Azure Blob Storage" }
func (AzureBlob) RcloneType() string { return "azureblob" }
func (AzureBlob) UsesBuckets() bool  { return true }
func (AzureBlob) ReadOnly() bool     { return false }

func (AzureBlob) CredentialsSchema() Schema {
	return Schema{
		{Name: "account", Title: "Account Name", Type: TypeString, Required: true},
		{Name: "key", Title: "Account Key", Type: TypeString, Required: true, Secret: true},
	}
}

func (AzureBlob) TaskSchema() Schema { return nil }
