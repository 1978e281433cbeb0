// package formatter renders credentials, tasks, runs and remote listings for
// terminal output, as styled tables or JSON.
package formatter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...)
}

// CredentialsTable renders stored credentials.
func CredentialsTable(creds []*models.Credential) string {
	t := newTable("#", "ID", "Name", "Provider")
	for _, c := range creds {
		t.Row(fmt.Sprintf("%d", c.Sequence()), c.ID(), c.Name(), c.Provider())
	}
	return t.Render()
}

// TasksTable renders sync tasks. The credential column falls back to the raw
// ID for tasks that were not extended.
func TasksTable(tasks []*models.SyncTask) string {
	t := newTable("#", "ID", "Description", "Direction", "Mode", "Path", "Remote", "Schedule", "Enabled")
	for _, task := range tasks {
		remote := strings.Trim(task.Bucket()+"/"+task.Folder(), "/")
		if cred := task.Credential(); cred != nil {
			remote = cred.Name() + ":" + remote
		}
		t.Row(
			fmt.Sprintf("%d", task.Sequence()),
			task.ID(),
			task.Description(),
			string(task.Direction()),
			string(task.TransferMode()),
			task.Path(),
			remote,
			task.Schedule().String(),
			fmt.Sprintf("%v", task.Enabled()),
		)
	}
	return t.Render()
}

// RunsTable renders run history.
func RunsTable(runs []*models.RunRecord) string {
	t := newTable("#", "ID", "Status", "Started", "Duration", "Error")
	for _, r := range runs {
		t.Row(
			fmt.Sprintf("%d", r.Sequence()),
			r.ID(),
			string(r.Status()),
			r.StartedAt().Format(time.RFC3339),
			FormatRunDuration(r),
			truncate(r.ErrorMessage(), 60),
		)
	}
	return t.Render()
}

// ProvidersTable renders the provider catalog.
func ProvidersTable(descriptors []providers.Descriptor) string {
	t := newTable("Name", "Title", "Buckets", "Read-only")
	for _, d := range descriptors {
		t.Row(d.Name, d.Title, yesNo(d.UsesBuckets), yesNo(d.ReadOnly))
	}
	return t.Render()
}

// ListingTable renders a remote directory listing.
func ListingTable(entries []models.RemoteEntry) string {
	t := newTable("Name", "Type", "Size", "Modified")
	for _, e := range entries {
		kind, size := "file", FormatSize(e.Size)
		if e.IsDir {
			kind, size = "dir", "-"
		}
		t.Row(e.Name, kind, size, e.ModTime)
	}
	return t.Render()
}

// SchemaTable renders the attribute fields of a provider schema.
func SchemaTable(schema providers.Schema) string {
	t := newTable("Attribute", "Title", "Type", "Required", "Secret")
	for _, f := range schema {
		t.Row(f.Name, f.Title, string(f.Type), yesNo(f.Required), yesNo(f.Secret))
	}
	return t.Render()
}

// ToJSON marshals v as indented JSON for --json output.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatSize renders a byte count with binary units. Negative sizes come from
// backends that don't report one.
func FormatSize(size int64) string {
	if size < 0 {
		return "-"
	}
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatRunDuration renders the elapsed time of a run, "-" while in flight.
func FormatRunDuration(r *models.RunRecord) string {
	finished := r.FinishedAt()
	if finished == nil {
		return "-"
	}
	return finished.Sub(r.StartedAt()).Round(time.Second).String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
