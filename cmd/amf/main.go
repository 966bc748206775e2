package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/transcoder"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// app holds state shared by the subcommands, filled in before each runs.
type app struct {
	cfg     *Config
	log     *zap.Logger
	out     io.Writer
	cfgPath string
	verbose bool
	noColor bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}

	root := &cobra.Command{
		Use:           "amf",
		Short:         "Inspect and produce AMF packets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "config file with defaults and shape declarations (YAML or .toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log shape synthesis and codec activity")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored tree output")

	root.AddCommand(
		a.decodeCmd(),
		a.inspectCmd(),
		a.encodeCmd(),
		a.shapesCmd(),
	)
	return root
}

func (a *app) setup() error {
	if a.noColor {
		color.NoColor = true
	}
	log, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log
	transcoder.SetLogger(log)

	cfg, err := LoadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug("config loaded",
		zap.String("path", a.cfgPath),
		zap.Uint16("version", cfg.MessageVersion()),
		zap.Int("shapes", len(cfg.Shapes)))
	return nil
}

// newLogger returns a development logger when verbose, otherwise a
// console logger that only reports warnings on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func (a *app) decodeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Print a decoded AMF packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.cfg.OutputFormat()
			}
			if !validFormat(format) {
				return fmt.Errorf("unknown format %q", format)
			}
			msg, err := readMessage(args[0])
			if err != nil {
				return err
			}
			a.log.Debug("decoded message",
				zap.String("file", args[0]),
				zap.Uint16("version", msg.Version),
				zap.Int("bodies", len(msg.Bodies)))
			return render(a.out, msg, format)
		},
	}
	addFormatFlag(cmd.Flags(), &format)
	return cmd
}

func addFormatFlag(fs *pflag.FlagSet, format *string) {
	fs.StringVarP(format, "format", "f", defaultFormat, "output format: tree, json, yaml, cbor or diag")
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Browse a decoded AMF packet in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			msg, err := readMessage(args[0])
			if err != nil {
				return err
			}
			return runInspect(args[0], msg)
		},
	}
}

func (a *app) encodeCmd() *cobra.Command {
	var (
		class   string
		version uint16
	)
	cmd := &cobra.Command{
		Use:   "encode IN.json OUT",
		Short: "Encode a JSON document as an AMF packet",
		Long: "Encode reads a JSON object (comments allowed) and writes OUT.amf.\n" +
			"With --class the members follow the order of the declared shape;\n" +
			"members the shape does not declare are sent as dynamic members.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("version") {
				version = a.cfg.MessageVersion()
			}
			if version != codec.AMF0 && version != codec.AMF3 {
				return fmt.Errorf("version must be 0 or 3, got %d", version)
			}

			var shape *transcoder.Shape
			if class != "" {
				s, err := a.cfg.ShapeOf(class)
				if err != nil {
					return err
				}
				shape = s
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			doc, err := parseJSON(data)
			if err != nil {
				return err
			}
			value, err := buildRoot(doc, shape)
			if err != nil {
				return err
			}

			out := trimExt(args[1])
			enc := transcoder.NewEncoder(transcoder.WithLogger(a.log))
			if err := enc.EncodeToFile(value, out, version); err != nil {
				return err
			}
			a.log.Debug("encoded message", zap.String("file", out+transcoder.FileExt), zap.String("class", class))
			fmt.Fprintf(a.out, "wrote %s\n", out+transcoder.FileExt)
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "declared shape that orders the top-level object")
	cmd.Flags().Uint16Var(&version, "version", transcoder.DefaultVersion, "message version, 0 or 3")
	return cmd
}

func (a *app) shapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "List the shapes declared in the config",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			reg, err := a.cfg.Registry()
			if err != nil {
				return err
			}
			if reg.Len() == 0 {
				fmt.Fprintln(a.out, "no shapes declared")
				return nil
			}
			for _, name := range reg.Names() {
				shape, _ := reg.Lookup(name)
				fmt.Fprintln(a.out, shape.String())
			}
			return nil
		},
	}
}

func readMessage(path string) (*codec.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return codec.NewDeserializer(f).ReadMessage()
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, transcoder.FileExt)
}
