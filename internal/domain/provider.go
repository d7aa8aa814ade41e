package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProviderKind is the backend category a Provider Actor serves.
type ProviderKind string

const (
	ProviderKindDatabase     ProviderKind = "database"
	ProviderKindCache        ProviderKind = "cache"
	ProviderKindStorage      ProviderKind = "storage"
	ProviderKindEmail        ProviderKind = "email"
	ProviderKindFileTransfer ProviderKind = "file-transfer"
)

// ProviderDescriptor is the persisted record describing one configured
// backend service instance. Config values are stored in the clear; callers
// rendering a descriptor to an admin surface MUST redact it first (see
// Redact).
type ProviderDescriptor struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	Name      string            `json:"name" db:"name" validate:"required"`
	Kind      ProviderKind      `json:"kind" db:"kind" validate:"required"`
	Subtype   string            `json:"subtype" db:"subtype" validate:"required"`
	Config    map[string]string `json:"config" db:"config"`
	Enabled   bool              `json:"enabled" db:"enabled"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

var secretConfigSuffixes = []string{"password", "secret", "key", "token"}

// Redact returns a copy of the descriptor with secret-shaped config values
// masked. Used by every info()/list() path so secrets never leave the
// process.
func (d ProviderDescriptor) Redact() ProviderDescriptor {
	redacted := d
	if d.Config == nil {
		return redacted
	}
	redacted.Config = make(map[string]string, len(d.Config))
	for k, v := range d.Config {
		if isSecretConfigKey(k) {
			redacted.Config[k] = "***"
			continue
		}
		redacted.Config[k] = v
	}
	return redacted
}

func isSecretConfigKey(key string) bool {
	lower := lowerASCII(key)
	for _, suffix := range secretConfigSuffixes {
		if len(lower) >= len(suffix) && lower[len(lower)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ProviderRepository persists provider descriptors. Activation state is not
// part of this interface — it lives only in the in-memory ProviderRegistry.
type ProviderRepository interface {
	Create(ctx context.Context, d *ProviderDescriptor) error
	Update(ctx context.Context, d *ProviderDescriptor) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*ProviderDescriptor, error)
	GetByName(ctx context.Context, name string) (*ProviderDescriptor, error)
	List(ctx context.Context) ([]*ProviderDescriptor, error)
}

// ConnectionInfo is the sanitized descriptor a Provider Actor reports to
// admin listings; never contains secrets.
type ConnectionInfo struct {
	Kind    ProviderKind      `json:"kind"`
	Subtype string            `json:"subtype"`
	Details map[string]string `json:"details,omitempty"`
}

// ConnectionError is the transient-failure shape every actor's
// test_connection() and pool-open step reports.
type ConnectionError struct {
	Message string
	Latency time.Duration
}

func (e *ConnectionError) Error() string { return "connection error: " + e.Message }
