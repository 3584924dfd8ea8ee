package main

// Command names
const (
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagOutput   = "output"
	FlagStore    = "store"
	FlagName     = "name"
	FlagValue    = "value"
	FlagAsync    = "async"
	FlagQuiet    = "quiet"
	FlagVerbose  = "verbose"
	FlagFormat   = "format"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagOutputShort   = "o"
	FlagNameShort     = "n"
	FlagQuietShort    = "q"
	FlagVerboseShort  = "v"
	FlagFormatShort   = "F"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Environment configuration
const (
	EnvFileName       = ".env"
	EnvKeyStoreDriver = "TEMPLY_STORE_DRIVER"
	EnvKeyStoreDSN    = "TEMPLY_STORE_DSN"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand      = "unknown command"
	ErrMsgMissingTemplate     = "template source required"
	ErrMsgInvalidData         = "invalid YAML data"
	ErrMsgReadFileFailed      = "failed to read file"
	ErrMsgWriteOutputFailed   = "failed to write output"
	ErrMsgParseTemplateFailed = "template parsing failed"
	ErrMsgRenderFailed        = "template rendering failed"
	ErrMsgInvalidFormat       = "invalid output format"
	ErrMsgStoreOpenFailed     = "failed to open template store"
	ErrMsgStoreLoadFailed     = "failed to load templates from store"
	ErrMsgMissingStoreName    = "template name required when rendering from a store"
	ErrMsgMarshalFailed       = "failed to marshal output value"
)

// Help text templates
const (
	HelpMainUsage = `temply - Template rendering CLI with try/catch error handling

Usage:
    temply <command> [options]

Commands:
    render      Render a template with data
    validate    Validate a template without rendering
    version     Show version information
    help        Show help for a command

Use "temply help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template with data

Usage:
    temply render [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -d, --data <yaml>       Inline YAML data string
    -f, --data-file <file>  YAML data file
    -o, --output <file>     Output file (default: stdout)
    -n, --name <name>       Template name to render from the store
        --store <dsn>       Template store, as driver:dsn (e.g. filesystem:./tmpl)
        --value             Render in value mode, output YAML instead of text
        --async             Render with suspendable dispatch
    -v, --verbose           Enable debug logging
    -q, --quiet             Suppress non-error output

Examples:
    temply render -t template.txt -d 'name: Alice'
    temply render -t template.txt -f data.yaml
    cat template.txt | temply render -t - -d 'name: Bob'
    temply render --store filesystem:./templates -n welcome -f data.yaml`

	HelpValidateUsage = `Validate a template without rendering

Usage:
    temply validate [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    temply validate -t template.txt
    cat template.txt | temply validate -t -`

	HelpVersionUsage = `Show version information

Usage:
    temply version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    temply help [command]

Commands:
    render      Show help for render command
    validate    Show help for validate command
    version     Show help for version command`
)

// Version output format template
const (
	VersionTextTemplate = "temply version %s\nGo: %s"
)

// Validation output text
const (
	ValidationTextSuccess = "Template is valid"
	ValidationTextFailure = "Template is invalid"
)

// Store DSN separator: "driver:connection-string"
const (
	StoreDSNSeparator = ":"
)

// File permission constant
const (
	FilePermissions = 0o644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
)
