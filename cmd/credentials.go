package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/formatter"
	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/server"
	"github.com/desertthunder/skysync/internal/shared"
)

// CreateCredential stores a new provider credential after schema validation.
func (r *Runner) CreateCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	attrs, err := collectAttrs(cmd)
	if err != nil {
		return err
	}

	cred, err := r.manager.CreateCredential(cmd.String("name"), cmd.String("provider"), attrs)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(r.credentialView(cred), true)
	}
	return r.writePlainln("✓ Credential created: %s (%s)", cred.Name(), cred.ID())
}

// ListCredentials prints stored credentials as a table or JSON.
func (r *Runner) ListCredentials(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if provider := cmd.String("provider"); provider != "" {
		criteria["provider"] = provider
	}

	creds, err := r.manager.ListCredentials(criteria)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]map[string]any, len(creds))
		for i, c := range creds {
			views[i] = r.credentialView(c)
		}
		return r.writeJSON(views, true)
	}
	return r.writePlain("%s\n", formatter.CredentialsTable(creds))
}

// ShowCredential prints one credential with its secret attributes redacted.
func (r *Runner) ShowCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	cred, err := r.manager.GetCredential(cmd.String("id"))
	if err != nil {
		return err
	}
	return r.writeJSON(r.credentialView(cred), true)
}

// UpdateCredential merges attribute changes into a credential and re-validates.
func (r *Runner) UpdateCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	cred, err := r.manager.GetCredential(cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.IsSet("name") {
		cred.SetName(cmd.String("name"))
	}
	attrs, err := collectAttrs(cmd)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		cred.SetAttribute(k, v)
	}

	if err := r.manager.UpdateCredential(cred); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return r.writePlainln("✓ Credential updated: %s", cred.ID())
}

// DeleteCredential removes a credential unless tasks still reference it.
func (r *Runner) DeleteCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	id := cmd.String("id")
	if err := r.manager.DeleteCredential(id); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return r.writePlainln("✓ Credential deleted: %s", id)
}

// VerifyCredential lists the backend root to prove the credential works.
func (r *Runner) VerifyCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	id := cmd.String("id")
	r.logger.Info("verifying credential", "id", id)
	if err := r.manager.VerifyCredential(ctx, id); err != nil {
		return err
	}
	return r.writePlainln("✓ Credential verified: %s", id)
}

// ListBuckets prints the top-level buckets reachable with a credential.
func (r *Runner) ListBuckets(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	buckets, err := r.manager.ListBuckets(ctx, cmd.String("id"))
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(buckets, true)
	}
	return r.writePlain("%s\n", formatter.ListingTable(buckets))
}

// AuthorizeCredential runs the OAuth authorization-code flow for a provider
// and stores the minted token as a new credential.
func (r *Runner) AuthorizeCredential(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	providerName := cmd.String("provider")
	p, ok := r.registry.Get(providerName)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrProviderUnknown, providerName)
	}
	op, ok := p.(providers.OAuthProvider)
	if !ok {
		return fmt.Errorf("%w: %s does not use OAuth", shared.ErrInvalidArgument, p.Title())
	}

	clientID := cmd.String("client-id")
	clientSecret := cmd.String("client-secret")
	conf := op.OAuthConfig(clientID, clientSecret, cmd.String("redirect-url"))

	token, err := server.Authorize(ctx, conf, r.logger)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	attrs := map[string]any{"token": string(tokenJSON)}
	if clientID != "" {
		attrs["client_id"] = clientID
	}
	if clientSecret != "" {
		attrs["client_secret"] = clientSecret
	}

	cred, err := r.manager.CreateCredential(cmd.String("name"), providerName, attrs)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	return r.writePlainln("✓ Authorized %s, credential created: %s", p.Title(), cred.ID())
}

// credentialView is the serializable form of a credential with secret
// attributes redacted per the provider's schema.
func (r *Runner) credentialView(cred *models.Credential) map[string]any {
	secret := map[string]bool{}
	if p, ok := r.registry.Get(cred.Provider()); ok {
		for _, f := range p.CredentialsSchema() {
			if f.Secret {
				secret[f.Name] = true
			}
		}
	}

	attrs := map[string]any{}
	for k, v := range cred.Attributes() {
		if secret[k] {
			attrs[k] = "********"
		} else {
			attrs[k] = v
		}
	}

	return map[string]any{
		"id":         cred.ID(),
		"sequence":   cred.Sequence(),
		"name":       cred.Name(),
		"provider":   cred.Provider(),
		"attributes": attrs,
	}
}

func attrFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "attr",
			Usage: "Provider attribute as key=value (repeatable)",
		},
		&cli.StringFlag{
			Name:  "attrs-json",
			Usage: "Provider attributes as a JSON object",
		},
	}
}

func credentialsCommand(r *Runner) *cli.Command {
	idFlag := &cli.StringFlag{
		Name:     "id",
		Usage:    "Credential ID",
		Required: true,
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}

	return &cli.Command{
		Name:    "credentials",
		Aliases: []string{"creds"},
		Usage:   "Manage cloud provider credentials",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Store a new credential",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "provider", Usage: "Provider name (see 'skysync providers')", Required: true},
					jsonFlag,
				}, attrFlags()...),
				Action: r.CreateCredential,
			},
			{
				Name:  "list",
				Usage: "List stored credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Usage: "Filter by provider name"},
					jsonFlag,
				},
				Action: r.ListCredentials,
			},
			{
				Name:   "show",
				Usage:  "Show one credential (secrets redacted)",
				Flags:  []cli.Flag{idFlag},
				Action: r.ShowCredential,
			},
			{
				Name:  "update",
				Usage: "Update a credential's name or attributes",
				Flags: append([]cli.Flag{
					idFlag,
					&cli.StringFlag{Name: "name", Usage: "New display name"},
				}, attrFlags()...),
				Action: r.UpdateCredential,
			},
			{
				Name:   "delete",
				Usage:  "Delete a credential",
				Flags:  []cli.Flag{idFlag},
				Action: r.DeleteCredential,
			},
			{
				Name:   "verify",
				Usage:  "Check that a credential can reach its backend",
				Flags:  []cli.Flag{idFlag},
				Action: r.VerifyCredential,
			},
			{
				Name:   "buckets",
				Usage:  "List buckets reachable with a credential",
				Flags:  []cli.Flag{idFlag, jsonFlag},
				Action: r.ListBuckets,
			},
			{
				Name:  "authorize",
				Usage: "Run the OAuth flow for a provider and store the token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Usage: "Provider name", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name for the new credential", Required: true},
					&cli.StringFlag{Name: "client-id", Usage: "OAuth client ID"},
					&cli.StringFlag{Name: "client-secret", Usage: "OAuth client secret"},
					&cli.StringFlag{
						Name:  "redirect-url",
						Usage: "Local callback URL for the authorization code",
						Value: server.DefaultRedirectURL,
					},
				},
				Action: r.AuthorizeCredential,
			},
		},
	}
}
