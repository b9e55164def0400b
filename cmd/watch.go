package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"twine-codec/compiler"
	"twine-codec/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>...",
	Short: "Ricompila i file .twee quando cambiano",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fw, err := watcher.NewFileWatcher(watcher.WatcherConfig{
			Paths:        args,
			Compiler:     comp,
			CompileOpts:  compileOptions(),
			DebounceTime: cfg.Watch.Debounce,
			AutoCompile:  true,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		if err := fw.Start(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return fw.Stop()
			case ev, ok := <-fw.Events():
				if !ok {
					return nil
				}
				switch ev.Type {
				case watcher.EventCompileSuccess:
					fmt.Fprintf(out, "compilato %s -> %s\n", ev.Path, ev.Message)
				case watcher.EventCompileError, watcher.EventValidationError:
					fmt.Fprintf(out, "errore %s: %s\n", ev.Path, ev.Message)
				default:
					logger.Debug("evento", zap.String("type", ev.Type), zap.String("path", ev.Path))
				}
			}
		}
	},
}

// Flag condivise dai comandi che compilano
var (
	flagFormat        string
	flagFormatVersion string
	flagOutput        string
	flagStart         string
	flagStory         string
	flagStrict        bool
)

func compileOptions() *compiler.CompileOptions {
	return &compiler.CompileOptions{
		Format:        flagFormat,
		FormatVersion: flagFormatVersion,
		Output:        flagOutput,
		StartNode:     flagStart,
		StoryName:     flagStory,
		StrictMode:    flagStrict,
	}
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagFormat, "format", "f", "", "formato della storia (es. Harlowe)")
	cmd.Flags().StringVar(&flagFormatVersion, "format-version", "", "versione del formato")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "file di output")
	cmd.Flags().StringVarP(&flagStart, "start", "s", "", "nome del passaggio iniziale")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "tratta i warning come errori")
}

func init() {
	addCompileFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
