package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "authorizer",
	Short: "API Gateway REQUEST authorizer backed by API Gateway API keys",
	Long: `authorizer extracts an API key from a gateway request, resolves it
against the API Gateway key listing (through an optional cache) and returns
an allow policy for the key's principal.

Configuration is read from the environment (AWS_REGION, AUTHORIZATION_PLAN,
CACHE_TABLE_NAME, MAX_API_KEY_CACHE_AGE, ...).

Inside Lambda (AWS_LAMBDA_RUNTIME_API set) the default command is "lambda".`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
			return runLambda(cmd, args)
		}
		return cmd.Help()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// keysFile replaces the API Gateway listing with a local JSON file of keys
var keysFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&keysFile, "keys", "", "JSON file of API keys to resolve against instead of API Gateway")
	rootCmd.AddCommand(lambdaCmd, serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
