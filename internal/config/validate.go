package config

// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "datasets[1].format"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// knownFormats are the dataset formats the extraction adapter can dispatch on.
var knownFormats = map[string]struct{}{
	"delimited": {},
	"columnar":  {},
}

// knownStorageKinds are the backends registered via internal/storage/all.
var knownStorageKinds = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"mysql":    {},
	"mssql":    {},
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	if len(p.Datasets) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "datasets",
			Message:  "at least one dataset is required",
		})
	}
	seen := map[string]struct{}{}
	for i, ds := range p.Datasets {
		path := fmt.Sprintf("datasets[%d]", i)
		if strings.TrimSpace(ds.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "dataset name must not be empty"})
			continue
		}
		if _, dup := seen[ds.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate dataset name %q", ds.Name)})
		}
		seen[ds.Name] = struct{}{}
		if strings.TrimSpace(ds.Path) == "" {
			issues = append(issues, Issue{SeverityError, path + ".path", "dataset path must not be empty"})
		}
		if _, ok := knownFormats[ds.Format]; !ok {
			issues = append(issues, Issue{
				SeverityError, path + ".format",
				fmt.Sprintf("unknown format %q (expected \"delimited\" or \"columnar\")", ds.Format),
			})
		}
	}

	issues = append(issues, validateStorage(p.Storage)...)

	if p.Runtime.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.workers", "workers must be >= 0"})
	}

	return issues
}

// validateStorage validates the storage sink configuration. An empty kind is
// legal and means the run skips the load stage (export-only runs).
func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		issues = append(issues, Issue{
			SeverityWarning, "storage.kind",
			"no storage configured; the master table will not be persisted",
		})
		return issues
	}
	if _, ok := knownStorageKinds[s.Kind]; !ok {
		issues = append(issues, Issue{
			SeverityError, "storage.kind",
			fmt.Sprintf("unknown storage kind %q", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.dsn", "dsn must not be empty"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.table", "table must not be empty"})
	}
	return issues
}
