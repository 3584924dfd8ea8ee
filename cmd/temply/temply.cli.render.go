package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-temply"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	dataYAML     string
	dataFilePath string
	outputPath   string
	storeDSN     string
	templateName string
	valueMode    bool
	asyncMode    bool
	verbose      bool
	quiet        bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingTemplate, err)
		return ExitCodeUsageError
	}

	data, err := loadData(cfg.dataYAML, cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
		return ExitCodeInputError
	}

	engine := temply.MustNew(engineOptions(cfg)...)

	tmpl, exitCode := resolveTemplate(cfg, engine, stdin, stderr)
	if exitCode != ExitCodeSuccess {
		return exitCode
	}

	result, err := renderTemplate(context.Background(), cfg, tmpl, data)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgRenderFailed, err)
		return ExitCodeError
	}

	if err := writeOutput(cfg.outputPath, []byte(result), stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	return ExitCodeSuccess
}

// resolveTemplate parses the template from the given source, either a
// file/stdin path or a named template loaded from a store.
func resolveTemplate(cfg *renderConfig, engine *temply.Engine, stdin io.Reader, stderr io.Writer) (*temply.Template, int) {
	if cfg.storeDSN != "" {
		if cfg.templateName == "" {
			fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgMissingStoreName, cfg.storeDSN)
			return nil, ExitCodeUsageError
		}

		store, err := openStoreFromDSN(cfg.storeDSN)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgStoreOpenFailed, err)
			return nil, ExitCodeInputError
		}
		defer store.Close()

		stored, err := store.Get(context.Background(), cfg.templateName)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgStoreLoadFailed, err)
			return nil, ExitCodeInputError
		}

		tmpl, err := engine.Parse(stored.Source)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgParseTemplateFailed, err)
			return nil, ExitCodeValidationError
		}
		return tmpl, ExitCodeSuccess
	}

	source, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return nil, ExitCodeInputError
	}

	tmpl, err := engine.Parse(string(source))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgParseTemplateFailed, err)
		return nil, ExitCodeValidationError
	}
	return tmpl, ExitCodeSuccess
}

// renderTemplate runs the template in the requested mode and returns the
// final output string. Value mode serializes the result as YAML so native
// values survive the trip to stdout.
func renderTemplate(ctx context.Context, cfg *renderConfig, tmpl *temply.Template, data map[string]any) (string, error) {
	switch {
	case cfg.valueMode && cfg.asyncMode:
		val, err := tmpl.RenderValueAsync(ctx, data).Wait()
		if err != nil {
			return "", err
		}
		return marshalValue(val)
	case cfg.valueMode:
		val, err := tmpl.RenderValue(ctx, data)
		if err != nil {
			return "", err
		}
		return marshalValue(val)
	case cfg.asyncMode:
		return tmpl.RenderAsync(ctx, data).Wait()
	default:
		return tmpl.Render(ctx, data)
	}
}

func marshalValue(val any) (string, error) {
	out, err := yaml.Marshal(val)
	if err != nil {
		return "", errors.New(ErrMsgMarshalFailed)
	}
	return string(out), nil
}

func engineOptions(cfg *renderConfig) []temply.Option {
	if !cfg.verbose {
		return nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil
	}
	return []temply.Option{temply.WithLogger(logger)}
}

// openStoreFromDSN opens a template store from a "driver:dsn" string.
// Driver and DSN fall back to .env / environment configuration when the
// flag only names a driver.
func openStoreFromDSN(dsn string) (temply.TemplateStore, error) {
	// Load .env if present, without overriding real environment values
	_ = godotenv.Load(EnvFileName)

	driver, conn, found := strings.Cut(dsn, StoreDSNSeparator)
	if !found {
		driver = dsn
		conn = os.Getenv(EnvKeyStoreDSN)
	}
	if driver == "" {
		driver = os.Getenv(EnvKeyStoreDriver)
	}

	return temply.OpenStore(driver, conn)
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.dataYAML, FlagData, "", "")
	fs.StringVar(&cfg.dataYAML, FlagDataShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVar(&cfg.storeDSN, FlagStore, "", "")
	fs.StringVar(&cfg.templateName, FlagName, "", "")
	fs.StringVar(&cfg.templateName, FlagNameShort, "", "")
	fs.BoolVar(&cfg.valueMode, FlagValue, false, "")
	fs.BoolVar(&cfg.asyncMode, FlagAsync, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")
	fs.BoolVar(&cfg.quiet, FlagQuiet, false, "")
	fs.BoolVar(&cfg.quiet, FlagQuietShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" && cfg.storeDSN == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	return cfg, nil
}

// loadData parses inline or file-based YAML into the render data map.
func loadData(yamlStr, filePath string) (map[string]any, error) {
	var yamlData []byte

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		yamlData = data
	} else if yamlStr != "" {
		yamlData = []byte(yamlStr)
	} else {
		// No data provided, render against an empty scope
		return make(map[string]any), nil
	}

	var result map[string]any
	if err := yaml.Unmarshal(yamlData, &result); err != nil {
		return nil, err
	}

	return result, nil
}
