// Package compiler implements the Handler Compiler (spec §4.3): it
// scaffolds a per-endpoint Go project depending on pkg/sdk, invokes the
// Go toolchain in c-shared release mode, and returns the artifact path.
// It never loads the result — the caller (an admin usecase) coordinates
// compile with Registry.Load/SwapGraceful.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/image"
)

// Compiler scaffolds and builds handler projects under handlersRoot.
type Compiler struct {
	handlersRoot string
	sdkModule    string
	buildTimeout time.Duration
	logger       *zap.Logger

	group singleflight.Group
}

func New(handlersRoot, sdkModule string, buildTimeout time.Duration, logger *zap.Logger) *Compiler {
	return &Compiler{
		handlersRoot: handlersRoot,
		sdkModule:    sdkModule,
		buildTimeout: buildTimeout,
		logger:       logger,
	}
}

// Compile writes the project tree for id, invokes the toolchain, and
// returns the artifact path on success. Concurrent calls for the same id
// are coalesced via singleflight — that is how "idempotent in its effect
// on the filesystem layout for a given id" holds under concurrent admin
// calls (spec §4.3).
func (c *Compiler) Compile(ctx context.Context, id, sourceCode string) (string, error) {
	result, err, _ := c.group.Do(id, func() (any, error) {
		return c.compile(ctx, id, sourceCode)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Compiler) compile(ctx context.Context, id, sourceCode string) (string, error) {
	dir := image.Dir(c.handlersRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.CompileError{Stderr: err.Error()}
	}

	if err := writeProject(dir, id, c.sdkModule, sourceCode); err != nil {
		return "", &domain.CompileError{Stderr: err.Error()}
	}

	buildCtx, cancel := context.WithTimeout(ctx, c.buildTimeout)
	defer cancel()

	releaseDir := filepath.Join(dir, "target", "release")
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		return "", &domain.CompileError{Stderr: err.Error()}
	}
	finalArtifact := filepath.Join(releaseDir, image.ArtifactName(id))
	tmpArtifact := finalArtifact + ".building"

	cmd := exec.CommandContext(buildCtx, "go", "build",
		"-buildmode=c-shared",
		"-o", tmpArtifact,
		".",
	)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmpArtifact)
		if buildCtx.Err() != nil {
			return "", &domain.CompileError{Stderr: fmt.Sprintf("build timed out: %v", buildCtx.Err())}
		}
		return "", &domain.CompileError{Stderr: stderr.String()}
	}

	// Rename over the previous artifact only on success, leaving any prior
	// compiled artifact untouched on failure.
	if err := os.Rename(tmpArtifact, finalArtifact); err != nil {
		return "", &domain.CompileError{Stderr: err.Error()}
	}

	c.logger.Info("compiled handler", zap.String("endpoint_id", id), zap.String("artifact", finalArtifact))
	return finalArtifact, nil
}
