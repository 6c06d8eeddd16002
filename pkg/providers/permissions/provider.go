// Package permissions provides a static, file-backed permission checker.
// Actor grants are read once from a JSON document at startup. A grant may
// name a role, which expands to the role's permission set.
package permissions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// grants is the on-disk document shape. Roles map a role name to the
// permissions it carries; actors map an actor id to a mix of role names
// and direct permissions. Roles expand one level, they do not nest.
type grants struct {
	Roles  map[string][]string `json:"roles"`
	Actors map[string][]string `json:"actors"`
}

// Provider resolves actor permissions, expanding role grants as it goes.
// Unknown actors hold no permissions.
type Provider struct {
	actors map[string][]string
	roles  map[string][]string
	logger *slog.Logger
}

func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions file %s: %w", path, err)
	}

	var doc grants
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode permissions file %s: %w", path, err)
	}

	logger.Info("Loaded actor permissions",
		"path", path, "actors", len(doc.Actors), "roles", len(doc.Roles))

	return &Provider{
		actors: doc.Actors,
		roles:  doc.Roles,
		logger: logger.With("module", "permissions_provider"),
	}, nil
}

// NewStaticProvider builds a checker from in-memory direct grants, mainly
// for tests. No roles are defined, so every grant is a permission.
func NewStaticProvider(actors map[string][]string, logger *slog.Logger) *Provider {
	return &Provider{
		actors: actors,
		logger: logger.With("module", "permissions_provider"),
	}
}

// NewStaticProviderWithRoles builds a checker from in-memory grants and
// role definitions.
func NewStaticProviderWithRoles(actors, roles map[string][]string, logger *slog.Logger) *Provider {
	return &Provider{
		actors: actors,
		roles:  roles,
		logger: logger.With("module", "permissions_provider"),
	}
}

func (p *Provider) PermissionsOf(_ context.Context, actor string) ([]string, error) {
	granted, ok := p.actors[actor]
	if !ok {
		return []string{}, nil
	}

	held := make([]string, 0, len(granted))
	seen := make(map[string]bool)

	add := func(permission string) {
		if !seen[permission] {
			seen[permission] = true
			held = append(held, permission)
		}
	}

	for _, grant := range granted {
		if expanded, isRole := p.roles[grant]; isRole {
			for _, permission := range expanded {
				add(permission)
			}

			continue
		}

		add(grant)
	}

	return held, nil
}
