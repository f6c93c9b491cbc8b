package ports

import (
	"context"

	"github.com/hashicorp/vault/api"
)

// SecretsRepository reads and writes secrets in the configured backend.
type SecretsRepository interface {
	SetToken(v string)
	GetSecrets(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}
