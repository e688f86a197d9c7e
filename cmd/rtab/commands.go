package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zakazai/hwdb-rtab/internal/codec"
	"github.com/zakazai/hwdb-rtab/internal/config"
	"github.com/zakazai/hwdb-rtab/internal/planner"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/storage"
	"github.com/zakazai/hwdb-rtab/internal/transport"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// app carries what every subcommand shares once flags are parsed
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *types.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	types.GlobalLogger = logger
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore() (storage.Store, error) {
	return storage.NewStore(a.cfg.StoreConfig(), a.logger)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rtab",
		Short:         "Inspect, transform and archive packed result tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newFakeCmd(a),
		newDumpCmd(a),
		newStatusCmd(a),
		newTransformCmd(a),
		newArchiveCmd(a),
		newRestoreCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newQueryCmd(a),
	)
	return root
}

// readInput reads the named file, or stdin for "" and "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes data to the named file, or stdout for "" and "-"
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func inputArg(args []string) string {
	if len(args) > 0 {
		return args[len(args)-1]
	}
	return ""
}

func decodeInput(cmd *cobra.Command, path string) (*rtab.Table, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}

func newFakeCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fake",
		Short: "Write a packed sample table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := codec.Marshal(rtab.FakeResults())
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [file]",
		Short: "Decode a packed table and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := decodeInput(cmd, inputArg(args))
			if err != nil {
				return err
			}
			defer t.Release()
			return t.Fprint(cmd.OutOrStdout())
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [file]",
		Short: "Print the status of a packed table without decoding its rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, inputArg(args))
			if err != nil {
				return err
			}
			code, msg, err := codec.PeekStatus(data)
			if err != nil {
				return err
			}
			if msg == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", code)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", code, msg)
			}
			return nil
		},
	}
}

func newTransformCmd(a *app) *cobra.Command {
	var output string
	var printOnly bool
	cmd := &cobra.Command{
		Use:     "transform DIRECTIVE [file]",
		Short:   "Apply a post-processing directive to a packed table",
		Example: `  rtab fake | rtab transform "SELECT application, COUNT(*) GROUP BY application" --print`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			t, err := decodeInput(cmd, path)
			if err != nil {
				return err
			}
			defer t.Release()

			if err := planner.Apply(args[0], t); err != nil {
				return err
			}
			a.logger.Debug("transformed table has %d rows", t.NumRows())
			if printOnly {
				return t.Fprint(cmd.OutOrStdout())
			}
			data, err := codec.Marshal(t)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the result instead of packing it")
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive NAME [file]",
		Short: "Store a packed table under NAME",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			t, err := decodeInput(cmd, path)
			if err != nil {
				return err
			}
			defer t.Release()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(args[0], t); err != nil {
				return err
			}
			a.logger.Info("archived %s (%d rows)", args[0], t.NumRows())
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "restore NAME",
		Short: "Write an archived table as a packed buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Load(args[0])
			if err != nil {
				return err
			}
			defer t.Release()
			data, err := codec.Marshal(t)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove an archived table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(args[0])
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var since, from, directive string
	var window int
	cmd := &cobra.Command{
		Use:   "query QUERY",
		Short: "Run a query against an archived or sample table over a loopback channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := rtab.FakeResults()
			if from != "" {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				if source, err = store.Load(from); err != nil {
					return err
				}
			}

			if window == 0 {
				window = a.cfg.Transport.Range
			}
			req := transport.Request{Query: args[0], Since: since, Range: window}
			lb := &transport.Loopback{Handler: transport.StaticHandler(source)}

			t, err := a.cfg.NewAdapter(a.logger).Query(context.Background(), lb, req)
			if err != nil {
				return err
			}
			defer t.Release()
			if directive != "" && t.IsSuccess() {
				if err := planner.Apply(directive, t); err != nil {
					return err
				}
			}
			return t.Fprint(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Only ask for rows after this formatted timestamp")
	cmd.Flags().IntVar(&window, "range", 0, "Query window in seconds when --since is not set")
	cmd.Flags().StringVar(&from, "from", "", "Answer from this archived table instead of the sample")
	cmd.Flags().StringVar(&directive, "apply", "", "Post-processing directive for the reply")
	return cmd
}
