package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// replyInfo mirrors the server's reply response shape.
type replyInfo struct {
	ID         string         `json:"id"`
	MetaformID string         `json:"metaformId"`
	UserID     string         `json:"userId"`
	CreatedAt  time.Time      `json:"createdAt"`
	ModifiedAt time.Time      `json:"modifiedAt"`
	Revision   *time.Time     `json:"revision,omitempty"`
	Data       map[string]any `json:"data"`
}

func newRepliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replies",
		Short: "Inspect and manage metaform replies",
	}

	cmd.AddCommand(newRepliesListCmd())
	cmd.AddCommand(newRepliesGetCmd())
	cmd.AddCommand(newRepliesDeleteCmd())

	return cmd
}

func newRepliesListCmd() *cobra.Command {
	var fields string
	var includeRevisions bool

	cmd := &cobra.Command{
		Use:   "list <metaform-id>",
		Short: "List replies to a metaform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}

			query := url.Values{}
			if fields != "" {
				query.Set("fields", fields)
			}
			if includeRevisions {
				query.Set("includeRevisions", "true")
			}
			path := "/v1/metaforms/" + args[0] + "/replies"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			body, err := globalClient.doRequest(http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			var replies []replyInfo
			if err := json.Unmarshal(body, &replies); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			rows := make([][]string, 0, len(replies))
			for _, reply := range replies {
				state := "live"
				if reply.Revision != nil {
					state = "revision"
				}
				rows = append(rows, []string{
					reply.ID,
					reply.UserID,
					state,
					reply.ModifiedAt.Format(time.RFC3339),
					fmt.Sprintf("%d", len(reply.Data)),
				})
			}
			return printOutput(os.Stdout, format, replies,
				[]string{"ID", "USER", "STATE", "MODIFIED", "FIELDS"}, rows)
		},
	}

	cmd.Flags().StringVar(&fields, "fields", "", "Field filter, e.g. status:approved,score^0")
	cmd.Flags().BoolVar(&includeRevisions, "include-revisions", false, "Include superseded revisions")

	return cmd
}

func newRepliesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <metaform-id> <reply-id>",
		Short: "Show one reply with its values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(outputFlag)
			if err != nil {
				return err
			}
			if format == outputTable {
				format = outputJSON
			}

			body, err := globalClient.doRequest(http.MethodGet,
				"/v1/metaforms/"+args[0]+"/replies/"+args[1], nil)
			if err != nil {
				return err
			}

			var reply replyInfo
			if err := json.Unmarshal(body, &reply); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return printOutput(os.Stdout, format, reply, nil, nil)
		},
	}
}

func newRepliesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <metaform-id> <reply-id>",
		Short: "Delete a reply and all of its stored values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := globalClient.doRequest(http.MethodDelete,
				"/v1/metaforms/"+args[0]+"/replies/"+args[1], nil)
			if err != nil {
				return err
			}
			fmt.Printf("deleted reply %s\n", args[1])
			return nil
		},
	}
}
