package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/genesis"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Agents     int               `json:"agents,omitempty"`
	Governance bool              `json:"governance,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a genesis document.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <genesis.cue>",
		Short: "Validate a genesis document without touching the ledger",
		Long: `Validate a CUE genesis document against the embedded schema.

Checks syntax, fee and threshold ranges, admin set size and identity
encoding without opening a database. Use before "neobank init --genesis".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("Validating %s", path)

	doc, err := genesis.Load(path)
	if err != nil {
		var loadErr *genesis.LoadError
		if !errors.As(err, &loadErr) {
			return WrapExitError(ExitCommandError, "failed to load genesis", err)
		}
		if loadErr.Code == genesis.ErrCodeRead {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
			issue.Column = loadErr.Pos.Column()
		}
		return outputValidationErrors(formatter, []ValidationIssue{issue})
	}

	// Output success
	result := ValidationResult{
		Valid:      true,
		Agents:     len(doc.Agents),
		Governance: doc.Governance != nil,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Genesis valid (%d agent(s))\n", result.Agents)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Unreadable input is a command-level error (exit code 2)
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	exitErr.Reported = true
	return exitErr
}

// outputValidationErrors outputs validation problems.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	exitErr.Reported = true

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return exitErr
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	return exitErr
}
