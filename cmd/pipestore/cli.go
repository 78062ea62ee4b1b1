package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/pipestore/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI wires the cobra command tree to a viper configuration.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	logger    *slog.Logger
	logCloser io.Closer
	configErr error
}

// NewCLI builds the command tree and loads configuration from the
// environment and config files.
func NewCLI() *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("PIPESTORE_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		// the type comes from the extension: pipestore.json, pipestore.yaml, ...
		cli.viperInst.SetConfigName("pipestore")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.pipestore")
		cli.viperInst.AddConfigPath("/etc/pipestore")
	}

	cli.viperInst.AutomaticEnv()
	cli.viperInst.SetEnvPrefix("PIPESTORE")
	// --id-prefix -> PIPESTORE_ID_PREFIX
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// a missing config file is fine, a broken one is reported on the first command
	if err := cli.viperInst.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cli.configErr = err
		}
	}
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "pipestore",
		Short: "Query and edit pipestore collections",
		Long: `pipestore reads and writes document collections stored as single files.

A collection named "people" lives in <dir>/people.json (or the configured
extension). Queries are built from repeatable flags and run left to right:

  pipestore get people --where "score >= 80" --where "or team = blue" --sort score:desc --take 5

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (PIPESTORE_*)
3. Configuration file (PIPESTORE_CONFIG, or pipestore.json/.yaml in ., ~/.pipestore, /etc/pipestore)`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())
			if cli.configErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: ignoring config file: %v\n", cli.configErr)
			}

			var stderr io.Writer
			if cli.viperInst.GetBool("log-stderr") {
				stderr = cmd.ErrOrStderr()
			}
			logger, closer, err := initLogging(cli.viperInst.GetString("log-level"), stderr)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
				return nil
			}
			cli.logger, cli.logCloser = logger, closer
			if cli.configErr != nil {
				cli.logger.Warn("failed to read config file", "error", cli.configErr)
			}
			return nil
		},
	}

	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("dir", "d", ".", "Directory holding the collection files")
	flags.String("ext", ".json", "Collection file extension")
	flags.String("storage-format", "", "Storage format (json|yaml|msgpack), derived from the extension when empty")
	flags.Bool("pretty", true, "Indent JSON collection files")
	flags.Bool("compress", false, "Store collections zstd compressed (.zst)")
	flags.String("id-prefix", "", "Prefix for generated identifiers")
	flags.Bool("more-entropy", false, "Append a random suffix to generated identifiers")

	flags.StringP("output", "o", OutputTable, "Output format (table|json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.Bool("log-stderr", false, "Mirror logs to stderr")

	for _, name := range []string{"dir", "ext", "storage-format", "pretty", "compress", "id-prefix", "more-entropy", "output", "log-level", "log-stderr"} {
		_ = cli.viperInst.BindPFlag(name, flags.Lookup(name))
	}
}

// Execute runs the root command.
func (cli *CLI) Execute() error {
	defer cli.closeLog()
	return cli.rootCmd.Execute()
}

func (cli *CLI) closeLog() {
	if cli.logCloser != nil {
		_ = cli.logCloser.Close()
		cli.logCloser = nil
	}
}

// storeOptions maps the configuration onto store options.
func (cli *CLI) storeOptions() store.Options {
	opts := store.DefaultOptions()
	if ext := cli.viperInst.GetString("ext"); ext != "" {
		opts.Extension = ext
	}
	opts.Format = cli.viperInst.GetString("storage-format")
	opts.Pretty = cli.viperInst.GetBool("pretty")
	opts.Compress = cli.viperInst.GetBool("compress")
	opts.IDPrefix = cli.viperInst.GetString("id-prefix")
	opts.MoreEntropy = cli.viperInst.GetBool("more-entropy")
	return opts
}

func (cli *CLI) storeOptionFuncs() []store.Option {
	return []store.Option{
		store.WithOptions(cli.storeOptions()),
		store.WithLogger(cli.logger),
	}
}

// openCollection opens <dir>/<name> with the configured options.
func (cli *CLI) openCollection(name string) (*store.Store, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, NewValidationError("open collection", "collection name", name, "Pass a bare name such as people")
	}
	path := filepath.Join(cli.viperInst.GetString("dir"), name)
	s, err := store.New(path, cli.storeOptionFuncs()...)
	if err != nil {
		return nil, WrapError("open collection "+name, err)
	}
	return s, nil
}

func (cli *CLI) output(cmd *cobra.Command, v any) error {
	formatter, err := NewOutputFormatter(cli.viperInst.GetString("output"))
	if err != nil {
		return err
	}
	return formatter.Write(cmd.OutOrStdout(), v)
}
