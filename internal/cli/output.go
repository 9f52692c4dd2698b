package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roach88/neobank/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Ledger rejection or failed scenario/validation
	ExitCommandError = 2 // Command error (bad flags, unreadable files, storage failure)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has already been written to the
	// command's output, so main does not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written by the formatter.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // operation id of the write, when there is one
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // ledger error code, e.g. "SpendingLimitExceeded"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	switch v := data.(type) {
	case string:
		fmt.Fprintln(f.Writer, v)
	case fmt.Stringer:
		fmt.Fprintln(f.Writer, v.String())
	default:
		text, err := renderText(data)
		if err != nil {
			return err
		}
		fmt.Fprint(f.Writer, text)
	}
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Report finishes a ledger command: data on success, the coded error
// otherwise. Ledger rejections exit 1; anything uncoded is a command error.
func (f *OutputFormatter) Report(data any, err error) error {
	if err == nil {
		return f.Success(data)
	}

	code := model.CodeOf(err)
	if code == "" {
		return WrapExitError(ExitCommandError, "operation failed", err)
	}

	var details map[string]string
	var me *model.Error
	if errors.As(err, &me) {
		details = me.Details
	}
	message := err.Error()
	if me != nil {
		message = me.Message
	}
	if werr := f.Error(string(code), message, details); werr != nil {
		return werr
	}
	exitErr := WrapExitError(ExitFailure, "operation rejected", err)
	exitErr.Reported = true
	return exitErr
}

// amountKeys are rendered with thousands separators in text output.
var amountKeys = map[string]bool{
	"amount":                    true,
	"balance":                   true,
	"fee":                       true,
	"net":                       true,
	"owed":                      true,
	"paid":                      true,
	"spending_limit":            true,
	"remaining_limit":           true,
	"current_period_spend":      true,
	"period_spend":              true,
	"total_deposited":           true,
	"staked_amount":             true,
	"vault_balance":             true,
	"pending_yield":             true,
	"treasury_balance":          true,
	"treasury_funding":          true,
	"total_fees_collected":      true,
	"auto_pause_threshold":      true,
	"suspicious_activity_count": true,
}

// timeKeys are unix seconds rendered as RFC 3339 when non-zero.
var timeKeys = map[string]bool{
	"at":                   true,
	"checked_at":           true,
	"created_at":           true,
	"current_period_start": true,
	"executed_at":          true,
	"expires_at":           true,
	"last_security_check":  true,
	"last_triggered":       true,
	"last_yield_timestamp": true,
	"now":                  true,
	"period_resets_at":     true,
	"period_start":         true,
	"valid_until":          true,
}

// renderText prints a JSON-shaped value as aligned "key  value" lines.
// Objects in a list are separated by a blank line.
func renderText(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	var b strings.Builder
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			b.WriteString("(none)\n")
		}
		for i, item := range t {
			if i > 0 {
				b.WriteString("\n")
			}
			writeValue(&b, "", item)
		}
	default:
		writeValue(&b, "", t)
	}
	return b.String(), nil
}

func writeValue(b *strings.Builder, indent string, v any) {
	obj, ok := v.(map[string]any)
	if !ok {
		fmt.Fprintf(b, "%s%s\n", indent, scalar("", v))
		return
	}
	keys := make([]string, 0, len(obj))
	width := 0
	for k := range obj {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch child := obj[k].(type) {
		case map[string]any:
			fmt.Fprintf(b, "%s%s\n", indent, k)
			writeValue(b, indent+"  ", child)
		case []any:
			fmt.Fprintf(b, "%s%-*s  %d item(s)\n", indent, width, k, len(child))
			for _, item := range child {
				writeValue(b, indent+"  ", item)
			}
		default:
			fmt.Fprintf(b, "%s%-*s  %s\n", indent, width, k, scalar(k, child))
		}
	}
}

func scalar(key string, v any) string {
	n, ok := v.(json.Number)
	if !ok {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(v)
	}
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return string(n)
	}
	switch {
	case amountKeys[key]:
		return humanize.Comma(i)
	case timeKeys[key] && i != 0:
		return time.Unix(i, 0).UTC().Format(time.RFC3339)
	}
	return string(n)
}
