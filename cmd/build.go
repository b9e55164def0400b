package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"twine-codec/compiler"
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Pubblica un file .twee o .html con il formato della storia",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := comp.Compile(args[0], compileOptions())
		printResult(cmd.OutOrStdout(), result)
		return err
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Converte una storia in Twee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := comp.ExportTwee(args[0], &compiler.CompileOptions{
			Output:    flagOutput,
			StoryName: flagStory,
		})
		printResult(cmd.OutOrStdout(), result)
		return err
	},
}

func printResult(w io.Writer, result *compiler.CompileResult) {
	if result == nil || !result.Success {
		return
	}
	fmt.Fprintf(w, "%s (%d passaggi) -> %s\n", result.StoryName, result.PassageCount, result.OutputFile)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func init() {
	addCompileFlags(buildCmd)
	buildCmd.Flags().StringVar(&flagStory, "story", "", "storia da pubblicare se l'input è un archivio")

	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "file di output")
	exportCmd.Flags().StringVar(&flagStory, "story", "", "storia da esportare se l'input è un archivio")

	rootCmd.AddCommand(buildCmd, exportCmd)
}
