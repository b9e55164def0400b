package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"twine-codec/roundtrip"
)

var checkOut string

var checkCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Verifica il round trip HTML e Twee di tutti i sorgenti di una cartella",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := roundtrip.NewRunner(roundtrip.Config{
			OutDir:  checkOut,
			App:     cfg.App,
			Options: cfg.StoryOptions(),
			Logger:  logger,
		})

		summary, err := runner.Run(args[0])
		if summary == nil {
			return err
		}

		rows := make([][]string, 0, len(summary.Reports))
		for _, r := range summary.Reports {
			status := "OK"
			if !r.Success {
				status = r.Error
			}
			rows = append(rows, []string{r.Filename, strconv.Itoa(len(r.Stories)), status})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderTable([]string{"File", "Storie", "Esito"}, rows, 2))
		fmt.Fprintf(out, "%d/%d file OK in %s\n", summary.Passed, summary.TotalFiles, summary.Duration)

		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(out, "errore: %v\n", e)
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d file con differenze o errori", summary.Failed)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkOut, "out", "o", "", "cartella per i report JSON (default: accanto ai sorgenti)")
	rootCmd.AddCommand(checkCmd)
}
