// Package cli defines the pharma-safe-lens command line: the HTTP service,
// a one-shot analysis and version information.
package cli

import (
	"fmt"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/config"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X .../cli.version=..."
var version = "dev"

// v resolves configuration for every command. Flags are bound to its keys
// so a flag overrides the environment, which overrides the defaults.
var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "pharma-safe-lens",
	Short: "Medicine label reader with grounded drug interaction explanations",
	Long: `pharma-safe-lens reads medicine names from label photos, resolves brand
names to generic drugs and looks up every pair in a curated interaction
table. Each interaction found is explained in plain language by a language
model working only from the verified facts.

It does not give medical advice. Always consult a doctor or pharmacist.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pharma-safe-lens %s\n", version)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env", "", "environment: dev, staging, prod or test")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("drug-db", "", "drug dictionary file (JSON or YAML)")
	flags.String("interactions-db", "", "interaction table file (JSON or YAML)")
	flags.String("llm-provider", "", "explanation provider: openai, anthropic, ollama, template or none")
	flags.String("llm-model", "", "model name for the explanation provider")

	bindFlags(rootCmd, map[string]string{
		"env":             "env",
		"log-level":       "log_level",
		"drug-db":         "drug_db_path",
		"interactions-db": "interactions_db_path",
		"llm-provider":    "llm_provider",
		"llm-model":       "llm_model",
	})

	rootCmd.AddCommand(versionCmd)
}

// bindFlags binds each flag of cmd to a viper key. Flags that were not set
// on the command line leave the environment value in place.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		f := cmd.PersistentFlags().Lookup(flag)
		if f == nil {
			f = cmd.Flags().Lookup(flag)
		}
		_ = v.BindPFlag(key, f)
	}
}

// loadConfig resolves configuration through the shared viper instance.
func loadConfig() (*config.Config, error) {
	return config.LoadFrom(v)
}
