package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-temply"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	templatePath string
	format       string
}

// validationOutput represents JSON output for validation
type validationOutput struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingTemplate, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	engine := temply.MustNew()
	_, parseErr := engine.Parse(string(templateSource))

	if cfg.format == OutputFormatJSON {
		return outputValidationJSON(parseErr, stdout)
	}
	return outputValidationText(parseErr, stdout)
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := flag.NewFlagSet(CmdNameValidate, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &validateConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

func outputValidationText(parseErr error, stdout io.Writer) int {
	if parseErr == nil {
		fmt.Fprintln(stdout, ValidationTextSuccess)
		return ExitCodeSuccess
	}

	fmt.Fprintf(stdout, FmtErrorWithCause, ValidationTextFailure, parseErr)
	return ExitCodeValidationError
}

func outputValidationJSON(parseErr error, stdout io.Writer) int {
	output := validationOutput{Valid: parseErr == nil}
	if parseErr != nil {
		output.Error = parseErr.Error()
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ")
	fmt.Fprintln(stdout, string(jsonBytes))

	if parseErr != nil {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}
