package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/apikey-authorizer/internal/lambdahandler"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve authorizer invocations from the Lambda runtime",
	Args:  cobra.NoArgs,
	RunE:  runLambda,
}

func runLambda(cmd *cobra.Command, args []string) error {
	a, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	// Blocks for the life of the execution environment
	lambda.Start(lambdahandler.New(a.service).Handle)
	return nil
}
