package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// metaformSummary mirrors the server's metaform listing shape.
type metaformSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newMetaformsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metaforms",
		Short: "Inspect metaform schemas",
	}

	cmd.AddCommand(newMetaformsListCmd())
	cmd.AddCommand(newMetaformsGetCmd())

	return cmd
}

func newMetaformsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List metaforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			body, err := globalClient.doRequest(http.MethodGet, "/v1/metaforms", nil)
			if err != nil {
				return err
			}

			var metaforms []metaformSummary
			if err := json.Unmarshal(body, &metaforms); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			rows := make([][]string, 0, len(metaforms))
			for _, m := range metaforms {
				rows = append(rows, []string{m.ID, m.Title})
			}
			return printOutput(os.Stdout, format, metaforms, []string{"ID", "TITLE"}, rows)
		},
	}
}

func newMetaformsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <metaform-id>",
		Short: "Show a metaform schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			if format == outputTable {
				format = outputJSON // schemas are nested, tables do not fit
			}

			body, err := globalClient.doRequest(http.MethodGet, "/v1/metaforms/"+args[0], nil)
			if err != nil {
				return err
			}

			var metaform map[string]any
			if err := json.Unmarshal(body, &metaform); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return printOutput(os.Stdout, format, metaform, nil, nil)
		},
	}
}
