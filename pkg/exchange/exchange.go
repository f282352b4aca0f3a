// Package exchange reads and writes portable project files.
//
// A project file is a JSON envelope wrapping a single project together
// with a format marker and a content fingerprint. Import never trusts
// the derived values found in a file: every imported project is
// recalculated before it is returned, so stale risk figures cannot
// enter the system through the exchange path. Export runs the same
// recalculation before serializing, which makes export/import
// round-trips stable.
package exchange

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// FormatName identifies a portable project file. Files carrying any
// other format marker are rejected.
const FormatName = "cluso-tara-project"

// FormatVersion is the newest envelope version this build understands.
const FormatVersion = 1

var (
	// ErrNotProjectFile is returned when the format marker is missing
	// or names a different document type.
	ErrNotProjectFile = errors.New("not a project file")

	// ErrVersionTooNew is returned when the file was written by a
	// newer format revision than this build understands.
	ErrVersionTooNew = errors.New("project file format version too new")

	// ErrFingerprintMismatch is returned when the file carries a
	// fingerprint that does not match its project content.
	ErrFingerprintMismatch = errors.New("project file fingerprint mismatch")
)

// File is the portable project file envelope.
type File struct {
	Format        string         `json:"format"`
	FormatVersion int            `json:"format_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	Project       *model.Project `json:"project"`
}

// ImportResult is a recalculated project parsed from a portable file,
// together with the recalculation warnings and counters.
type ImportResult struct {
	Project     *model.Project
	Warnings    []risk.Warning
	Stats       risk.Stats
	Fingerprint string
}

// ExportResult is a rendered portable file together with the warnings
// raised while recalculating the project it contains.
type ExportResult struct {
	Data        []byte
	Fingerprint string
	Warnings    []risk.Warning
}

// Fingerprint returns the hex BLAKE2b-256 digest of a serialized
// project. The digest covers the canonical JSON encoding of the
// project alone, never the envelope, so it is comparable across
// exports regardless of when they were written.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Import parses a portable project file, validates its structure and
// returns the project recalculated under the given recalculator. A
// file fingerprint, when present, must match the content as written;
// files without a fingerprint are accepted so hand-authored projects
// can be imported.
func Import(data []byte, recalc *risk.ProjectRecalculator) (*ImportResult, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}

	if file.Format != FormatName {
		if file.Format == "" {
			return nil, fmt.Errorf("%w: missing format marker", ErrNotProjectFile)
		}
		return nil, fmt.Errorf("%w: format %q", ErrNotProjectFile, file.Format)
	}
	if file.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: version %d, this build understands up to %d",
			ErrVersionTooNew, file.FormatVersion, FormatVersion)
	}
	if file.Project == nil {
		return nil, fmt.Errorf("%w: no project payload", ErrNotProjectFile)
	}

	if file.Fingerprint != "" {
		canonical, err := json.Marshal(file.Project)
		if err != nil {
			return nil, fmt.Errorf("fingerprint project: %w", err)
		}
		if got := Fingerprint(canonical); got != file.Fingerprint {
			return nil, fmt.Errorf("%w: file says %s, content is %s",
				ErrFingerprintMismatch, abbreviate(file.Fingerprint), abbreviate(got))
		}
	}

	if err := file.Project.Validate(); err != nil {
		return nil, fmt.Errorf("validate imported project: %w", err)
	}

	if recalc == nil {
		recalc = risk.NewProjectRecalculator(nil)
	}
	result, err := recalc.Recalculate(file.Project)
	if err != nil {
		return nil, fmt.Errorf("recalculate imported project: %w", err)
	}

	canonical, err := json.Marshal(result.Project)
	if err != nil {
		return nil, fmt.Errorf("fingerprint recalculated project: %w", err)
	}

	return &ImportResult{
		Project:     result.Project,
		Warnings:    result.Warnings,
		Stats:       result.Stats,
		Fingerprint: Fingerprint(canonical),
	}, nil
}

// Export recalculates the project and renders it as a portable file.
// The input project is not mutated.
func Export(project *model.Project, recalc *risk.ProjectRecalculator) (*ExportResult, error) {
	if project == nil {
		return nil, model.ErrNilProject
	}

	if recalc == nil {
		recalc = risk.NewProjectRecalculator(nil)
	}
	result, err := recalc.Recalculate(project)
	if err != nil {
		return nil, fmt.Errorf("recalculate project for export: %w", err)
	}

	canonical, err := json.Marshal(result.Project)
	if err != nil {
		return nil, fmt.Errorf("fingerprint project: %w", err)
	}
	fingerprint := Fingerprint(canonical)

	file := File{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		Fingerprint:   fingerprint,
		Project:       result.Project,
	}
	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render project file: %w", err)
	}
	data = append(data, '\n')

	return &ExportResult{
		Data:        data,
		Fingerprint: fingerprint,
		Warnings:    result.Warnings,
	}, nil
}

// ImportFile reads and imports a portable project file from disk.
func ImportFile(path string, recalc *risk.ProjectRecalculator) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	return Import(data, recalc)
}

// ExportFile recalculates the project and writes it as a portable file
// at the given path.
func ExportFile(path string, project *model.Project, recalc *risk.ProjectRecalculator) (*ExportResult, error) {
	result, err := Export(project, recalc)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, result.Data, 0644); err != nil {
		return nil, fmt.Errorf("write project file: %w", err)
	}
	return result, nil
}

// abbreviate shortens a fingerprint for error messages.
func abbreviate(fp string) string {
	if len(fp) <= 12 {
		return fp
	}
	return fp[:12] + "..."
}
