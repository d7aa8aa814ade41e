package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProjectRendersGoModAndShim(t *testing.T) {
	dir := t.TempDir()
	source := "func Handle(ctx sdk.Context, req sdk.Request) sdk.Response { return sdk.Response{} }"

	require.NoError(t, writeProject(dir, "ep-42", "github.com/aras-services/native-gateway/pkg/sdk", source))

	goMod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(goMod), "module handler/ep-42")
	assert.Contains(t, string(goMod), "require github.com/aras-services/native-gateway/pkg/sdk v0.0.0")
	assert.Contains(t, string(goMod), "replace github.com/aras-services/native-gateway/pkg/sdk => ../../../pkg/sdk")

	handler, err := os.ReadFile(filepath.Join(dir, "handler.go"))
	require.NoError(t, err)
	text := string(handler)
	assert.Contains(t, text, "//export handler_entry")
	assert.Contains(t, text, "//export sdk_abi_version")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), strings.TrimSpace(source)))
}

func TestWriteProjectFailsOnUnwritableDir(t *testing.T) {
	err := writeProject("/nonexistent/does/not/exist", "ep-1", "some/module", "")
	assert.Error(t, err)
}
