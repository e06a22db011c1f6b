// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/docforge/pkg/types"
)

const binSoffice = "soffice"

// officeMu guards the single live LibreOffice session per process. soffice
// serializes on its user profile, so two concurrent sessions would deadlock
// or corrupt each other.
var officeMu sync.Mutex

// OfficeSession is the process-wide LibreOffice automation handle. It must
// be acquired once per run and released on every exit path.
type OfficeSession struct {
	bin        string
	profileDir string
	exec       executor

	mu       sync.Mutex
	released bool
}

// AcquireOffice claims the process-wide LibreOffice session and creates an
// isolated user profile for it. It fails immediately when another run holds
// the session.
func AcquireOffice(cfg types.ConversionConfig) (*OfficeSession, error) {
	return acquireOffice(cfg, defaultExec)
}

func acquireOffice(cfg types.ConversionConfig, exec executor) (*OfficeSession, error) {
	bin := cfg.SofficePath
	if bin == "" {
		bin = binSoffice
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, &types.ConversionFailure{
			Tool:   binSoffice,
			Reason: fmt.Sprintf("executable %q not found: %v", bin, err),
		}
	}

	if !officeMu.TryLock() {
		return nil, fmt.Errorf("another run holds the LibreOffice session")
	}

	profileDir, err := os.MkdirTemp("", "docforge-soffice-")
	if err != nil {
		officeMu.Unlock()
		return nil, fmt.Errorf("creating LibreOffice profile: %w", err)
	}

	return &OfficeSession{bin: resolved, profileDir: profileDir, exec: exec}, nil
}

// Release closes the session and removes its profile. Safe to call more
// than once; the pipeline defers it on every exit path.
func (s *OfficeSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	os.RemoveAll(s.profileDir)
	officeMu.Unlock()
}

// LibreOfficeConverter re-normalizes a body document through a headless
// soffice conversion. Unlike pandoc it cannot impose a reference template;
// it is the fallback backend for documents pandoc mangles, trading template
// styling for higher structural fidelity.
type LibreOfficeConverter struct {
	session *OfficeSession
	timeout time.Duration
}

// NewLibreOfficeConverter wraps an acquired session.
func NewLibreOfficeConverter(session *OfficeSession, cfg types.ConversionConfig) *LibreOfficeConverter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LibreOfficeConverter{session: session, timeout: timeout}
}

func (c *LibreOfficeConverter) Name() string { return binSoffice }

// Convert runs soffice --headless --convert-to docx. soffice names its
// output after the input file, so the conversion runs in a dedicated
// directory; the produced file is verified there before being moved to
// outputPath, and the input file is never touched.
func (c *LibreOfficeConverter) Convert(ctx context.Context, inputPath, outputPath, referenceDoc string) error {
	c.session.mu.Lock()
	released := c.session.released
	c.session.mu.Unlock()
	if released {
		return fmt.Errorf("LibreOffice session already released")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	convDir, err := os.MkdirTemp(filepath.Dir(outputPath), "soffice-")
	if err != nil {
		return fmt.Errorf("creating conversion directory: %w", err)
	}
	defer os.RemoveAll(convDir)

	args := []string{
		"--headless", "--norestore",
		"-env:UserInstallation=file://" + c.session.profileDir,
		"--convert-to", "docx",
		"--outdir", convDir,
		inputPath,
	}

	res, err := c.session.exec.Run(ctx, c.session.bin, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.TimeoutError{Tool: binSoffice, Timeout: c.timeout}
	}
	if err != nil {
		return &types.ConversionFailure{Tool: binSoffice, Reason: err.Error()}
	}
	if res.exitCode != 0 {
		return &types.ConversionFailure{Tool: binSoffice, ExitCode: res.exitCode, Stderr: res.stderr}
	}

	produced := filepath.Join(convDir,
		strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))+".docx")
	if _, err := os.Stat(produced); err != nil {
		return &types.ConversionFailure{Tool: binSoffice, Reason: "produced no output file"}
	}
	if err := os.Rename(produced, outputPath); err != nil {
		return &types.ConversionFailure{Tool: binSoffice, Reason: fmt.Sprintf("moving converted file: %v", err)}
	}
	return verifyOutput(binSoffice, outputPath)
}
