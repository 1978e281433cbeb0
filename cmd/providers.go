package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/formatter"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/shared"
)

// ListProviders prints the provider catalog.
func (r *Runner) ListProviders(ctx context.Context, cmd *cli.Command) error {
	descriptors := make([]providers.Descriptor, 0, len(r.registry.All()))
	for _, p := range r.registry.All() {
		descriptors = append(descriptors, providers.Describe(p))
	}

	if cmd.Bool("json") {
		return r.writeJSON(descriptors, true)
	}
	return r.writePlain("%s\n", formatter.ProvidersTable(descriptors))
}

// ShowProviderSchema prints the attribute schema for one provider.
func (r *Runner) ShowProviderSchema(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("name")
	p, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrProviderUnknown, name)
	}

	if cmd.Bool("json") {
		return r.writeJSON(providers.Describe(p), true)
	}

	r.writePlain("%s credentials:\n%s\n", p.Title(), formatter.SchemaTable(p.CredentialsSchema()))
	if schema := p.TaskSchema(); len(schema) > 0 {
		r.writePlain("\n%s task attributes:\n%s\n", p.Title(), formatter.SchemaTable(schema))
	}
	return nil
}

func providersCommand(r *Runner) *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}

	return &cli.Command{
		Name:   "providers",
		Usage:  "List supported cloud providers",
		Flags:  []cli.Flag{jsonFlag},
		Action: r.ListProviders,
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "Show a provider's credential and task attribute schemas",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Provider name", Required: true},
					jsonFlag,
				},
				Action: r.ShowProviderSchema,
			},
		},
	}
}
