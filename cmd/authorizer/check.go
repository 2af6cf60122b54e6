package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/apikey-authorizer/internal/authorizer"
)

var checkEventFile string

var checkCmd = &cobra.Command{
	Use:   "check --event <file>",
	Short: "Authorize a single REQUEST authorizer event and print the decision",
	Example: `  authorizer check --event event.json
  authorizer check --event - --keys keys.json < event.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return runCheck(cmd.Context(), a.service, checkEventFile, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkEventFile, "event", "", `event JSON file ("-" for stdin)`)
	_ = checkCmd.MarkFlagRequired("event")
}

type eventAuthorizer interface {
	Authorize(ctx context.Context, req authorizer.Request) (authorizer.Decision, error)
}

func runCheck(ctx context.Context, auth eventAuthorizer, path string, stdin io.Reader, out io.Writer) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	var req authorizer.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse event: %w", err)
	}

	d, err := auth.Authorize(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
