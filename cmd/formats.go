package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Elenca i formati di storia disponibili",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		available := registry.Available()
		if len(available) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "nessun formato trovato in %s\n", cfg.Formats.Dir)
			return nil
		}

		rows := make([][]string, 0, len(available))
		for _, f := range available {
			kind := "storia"
			if f.Proofing {
				kind = "proofing"
			}
			rows = append(rows, []string{f.Name, f.Version, kind, f.Author})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Nome", "Versione", "Tipo", "Autore"}, rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
