package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/mention"
)

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [text]",
		Short: "Print the symptom mentions found in free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			table, err := a.knowledgeTable(ctx)
			if err != nil {
				return err
			}
			res, err := a.extractor(table).Extract(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printMentions(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printMentions(out io.Writer, res mention.Result) {
	if len(res.Mentions) == 0 {
		fmt.Fprintln(out, "No symptoms recognised.")
		return
	}
	for _, m := range res.Mentions {
		fmt.Fprintf(out, "%-24s %-28s %q\n", m.ConceptID, m.Name, m.MatchedPhrase)
	}
}
