package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"scribeflow/internal/domain"
)

// Checker validates external engine binaries and required filesystem paths
// before any job runs.
type Checker struct {
	fs       afero.Fs
	lookPath func(string) (string, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return NewCheckerWithDeps(afero.NewOsFs(), exec.LookPath)
}

// NewCheckerWithDeps creates a checker with injectable dependencies.
func NewCheckerWithDeps(fs afero.Fs, lookPath func(string) (string, error)) *Checker {
	return &Checker{fs: fs, lookPath: lookPath}
}

// Run executes all preflight checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", settings.FFmpegPath),
		c.checkTool("whisper", settings.WhisperPath),
		c.checkModelPath(settings.ModelPath),
		c.checkDiarizer(settings),
		c.checkDir("watch_dir", "Watch directory", settings.WatchDir),
		c.checkWritableDir("output_dir", "Output directory", settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required executable exists, either as a configured
// path or on PATH.
func (c *Checker) checkTool(id, path string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "tool_" + id, Name: id}

	if strings.TrimSpace(path) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No %s binary configured.", id)
		item.Hint = "Set the binary path in settings or install it on PATH."
		return item
	}

	if strings.ContainsRune(path, os.PathSeparator) {
		if _, err := c.fs.Stat(path); err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Configured binary not found: %s", path)
			item.Hint = "Fix the configured path or install the tool."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", path)
		return item
	}

	resolved, err := c.lookPath(path)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Tool not found in PATH: %s", path)
		item.Hint = "Install it and ensure the binary is available on PATH."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", resolved)
	return item
}

// checkModelPath validates the configured model file or model directory.
func (c *Checker) checkModelPath(modelPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "model_path", Name: "Model path"}

	if strings.TrimSpace(modelPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model path is empty."
		item.Hint = "Set a model file path or a directory containing whisper models."
		return item
	}

	info, err := c.fs.Stat(modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Model path does not exist: %s", modelPath)
		} else {
			item.Message = fmt.Sprintf("Cannot access model path: %s", modelPath)
		}
		item.Hint = "Download a whisper.cpp model and configure its path."
		return item
	}

	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Model file found: %s", modelPath)
		return item
	}

	entries, err := afero.ReadDir(c.fs, modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelPath)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory is valid: %s", modelPath)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = fmt.Sprintf("No model files found in directory: %s", modelPath)
	item.Hint = "Place a .bin or .gguf model file here or point to a model file directly."
	return item
}

// checkDiarizer validates the diarizer only when some configuration can
// actually enable the stage; the stage is optional everywhere else.
func (c *Checker) checkDiarizer(settings domain.Settings) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "diarizer", Name: "Diarizer"}

	enabled := false
	for _, v := range settings.DiarizeByType {
		if v {
			enabled = true
			break
		}
	}
	for _, v := range settings.DiarizeBySubcategory {
		if v {
			enabled = true
			break
		}
	}

	if !enabled {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Diarization disabled for all content types."
		return item
	}
	if strings.TrimSpace(settings.DiarizerPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Diarization is enabled but no diarizer is configured."
		item.Hint = "Set the diarizer executable path, or disable diarization defaults."
		return item
	}
	if _, err := c.fs.Stat(settings.DiarizerPath); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Diarizer not found: %s", settings.DiarizerPath)
		item.Hint = "Fix the configured diarizer path."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", settings.DiarizerPath)
	return item
}

// checkDir validates a directory exists.
func (c *Checker) checkDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = name + " is empty."
		return item
	}
	info, err := c.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory does not exist: %s", dir)
		item.Hint = "Create it or point the setting at an existing directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Directory exists: %s", dir)
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = name + " is empty."
		item.Hint = "Set a directory where transcripts can be written."
		return item
	}

	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust permissions."
		return item
	}

	probe := filepath.Join(dir, ".write-check")
	if err := afero.WriteFile(c.fs, probe, nil, 0o644); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory for transcript export."
		return item
	}
	_ = c.fs.Remove(probe)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}
