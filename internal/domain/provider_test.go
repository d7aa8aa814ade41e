package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksSecretShapedKeys(t *testing.T) {
	d := ProviderDescriptor{
		Config: map[string]string{
			"host":           "db.internal",
			"password":       "hunter2",
			"api_key":        "sk-abc123",
			"refresh_token":  "rt-xyz",
			"max_connections": "10",
		},
	}

	redacted := d.Redact()

	assert.Equal(t, "db.internal", redacted.Config["host"])
	assert.Equal(t, "10", redacted.Config["max_connections"])
	assert.Equal(t, "***", redacted.Config["password"])
	assert.Equal(t, "***", redacted.Config["api_key"])
	assert.Equal(t, "***", redacted.Config["refresh_token"])

	// Original must be untouched.
	assert.Equal(t, "hunter2", d.Config["password"])
}

func TestRedactNilConfig(t *testing.T) {
	d := ProviderDescriptor{}
	redacted := d.Redact()
	assert.Nil(t, redacted.Config)
}
