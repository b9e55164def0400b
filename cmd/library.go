package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <file>...",
	Short: "Raccoglie più storie in un archivio HTML",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := comp.Archive(args, archiveOutput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d file archiviati -> %s\n", len(args), result.OutputFile)
		return nil
	},
}

var (
	archiveOutput string
	splitDir      string
)

var splitCmd = &cobra.Command{
	Use:   "split <archive>",
	Short: "Esporta ogni storia di un archivio in un file .twee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := comp.Split(args[0], splitDir)
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return err
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveOutput, "output", "o", "archive.html", "file di output")
	splitCmd.Flags().StringVarP(&splitDir, "dir", "d", "", "cartella di destinazione (default: output della configurazione)")
	rootCmd.AddCommand(archiveCmd, splitCmd)
}
