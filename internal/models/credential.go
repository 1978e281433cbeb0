package models

import (
	"fmt"
)

// Credential holds stored authentication and configuration attributes for one
// cloud provider account. Attribute keys are defined by the provider's
// credentials schema; the struct itself does not interpret them.
type Credential struct {
	entity

	name       string
	provider   string
	attributes map[string]any
}

// NewCredential creates a Credential for the given provider with the supplied attributes.
func NewCredential(sequence int, name, provider string, attributes map[string]any) *Credential {
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &Credential{
		entity:     newEntity(sequence),
		name:       name,
		provider:   provider,
		attributes: attributes,
	}
}

func (c *Credential) Name() string                    { return c.name }
func (c *Credential) SetName(name string)             { c.name = name }
func (c *Credential) Provider() string                { return c.provider }
func (c *Credential) SetProvider(provider string)     { c.provider = provider }
func (c *Credential) Attributes() map[string]any      { return c.attributes }
func (c *Credential) SetAttributes(a map[string]any)  { c.attributes = a }
func (c *Credential) SetAttribute(key string, v any)  { c.attributes[key] = v }
func (c *Credential) Attribute(key string) (any, bool) {
	v, ok := c.attributes[key]
	return v, ok
}

// Validate checks structural invariants. Provider schema validation happens
// against the registry, not here.
func (c *Credential) Validate() error {
	if c.name == "" {
		return fmt.Errorf("credential name is required")
	}
	if c.provider == "" {
		return fmt.Errorf("credential provider is required")
	}
	return nil
}
