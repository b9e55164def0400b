package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"twine-codec/compiler"
	"twine-codec/config"
	"twine-codec/formats"
)

var (
	cfgPath  string
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
	registry *formats.Registry
	comp     *compiler.Compiler
)

var rootCmd = &cobra.Command{
	Use:   "twine-codec",
	Short: "Converte le storie Twine tra archivio HTML e Twee",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		logger = cfg.Logging.Build()

		registry = formats.NewRegistry(logger)
		if _, err := registry.LoadDir(cfg.Formats.Dir); err != nil {
			// Un format.js rotto non impedisce di usare gli altri
			logger.Warn("alcuni formati non sono stati caricati", zap.Error(err))
		}

		comp, err = compiler.NewCompiler(compiler.Config{
			Formats:              registry,
			AppInfo:              cfg.App,
			WorkDir:              cfg.Output.Dir,
			DefaultFormat:        cfg.Formats.Default,
			DefaultFormatVersion: cfg.Formats.DefaultVersion,
			Logger:               logger,
		})
		if err != nil {
			return fmt.Errorf("errore inizializzazione compiler: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "twine-codec.yaml", "file di configurazione (YAML o TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "livello di log: none, normal, debug")
}

// Execute esegue il comando principale
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}
