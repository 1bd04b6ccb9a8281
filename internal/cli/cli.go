package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vk/fieldengine/internal/app"
	"github.com/vk/fieldengine/internal/hcl"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks invalid arguments, which exit with code 2.
func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logFormat string
	logLevel  string
	models    []string
}

// Execute parses args, runs the selected command and returns its error.
// Results go to outW and logs to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the fieldengine command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "fieldengine",
		Short: "Evaluate fields defined over a finite element mesh.",
		Long: `fieldengine loads a model of nodes, elements, nodesets and fields from
.hcl files and evaluates fields at nodes, elements or element chart
coordinates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringArrayVarP(&flags.models, "model", "m", nil, "Path to a model .hcl file or directory. Repeatable.")

	root.AddCommand(newEvaluateCommand(flags, outW, errW))
	root.AddCommand(newListCommand(flags, outW, errW))
	return root
}

// newConfig validates the flags into an application configuration. Positional
// arguments are further model paths.
func newConfig(flags *globalFlags, args []string, cfg app.Config) (*app.Config, error) {
	cfg.ModelPaths = append(append([]string{}, flags.models...), args...)
	if len(cfg.ModelPaths) == 0 {
		return nil, usageError(errors.New("a model path is required: use --model or MODEL_PATH"))
	}
	cfg.LogFormat = flags.logFormat
	cfg.LogLevel = flags.logLevel
	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parameter validation complete.", "models", len(config.ModelPaths))
	return config, nil
}

func newApp(config *app.Config, outW, errW io.Writer) (*app.App, error) {
	a, err := app.NewApp(outW, errW, config, hcl.NewLoader())
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	return a, nil
}

func newEvaluateCommand(flags *globalFlags, outW, errW io.Writer) *cobra.Command {
	var cfg app.Config
	cmd := &cobra.Command{
		Use:   "evaluate [MODEL_PATH...]",
		Short: "Evaluate fields at a location.",
		Long: `Evaluate fields at a node, an element or a point given by element chart
coordinates. Fields are referenced as 'name' or 'name[component]' with
0-based components. Without --field every field is evaluated.`,
		Example: `  fieldengine evaluate -m model/ --node 3 -f coordinates -f temperature
  fieldengine evaluate -m model/ --element 1 --xi 0.5,0.25 --derivative 1 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := newConfig(flags, args, cfg)
			if err != nil {
				return err
			}
			a, err := newApp(config, outW, errW)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&cfg.Fields, "field", "f", nil, "Field to evaluate, as 'name' or 'name[component]'. Repeatable.")
	f.IntVar(&cfg.Location.Node, "node", 0, "Identifier of the node to evaluate at.")
	f.IntVar(&cfg.Location.Element, "element", 0, "Identifier of the element to evaluate in.")
	f.Float64SliceVar(&cfg.Location.Xi, "xi", nil, "Element chart coordinates, comma separated.")
	f.Float64Var(&cfg.Location.Time, "time", 0, "Time of the evaluation location.")
	f.IntVar(&cfg.Location.DerivativeOrder, "derivative", 0, "Order of the mesh derivative to evaluate at an element location.")
	f.StringVar(&cfg.Location.Parameters, "parameters", "", "Evaluate the derivative with respect to the parameters of this node_value field.")
	f.StringVarP(&cfg.Output, "output", "o", "text", "Output format. Options: 'text', 'json' or 'yaml'.")
	return cmd
}

func newListCommand(flags *globalFlags, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list [MODEL_PATH...]",
		Short: "List the fields of a model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := newConfig(flags, args, app.Config{})
			if err != nil {
				return err
			}
			a, err := newApp(config, outW, errW)
			if err != nil {
				return err
			}
			return a.List()
		},
	}
}

// Code returns the process exit code for an error returned by Execute.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
