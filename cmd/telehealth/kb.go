package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the symptom knowledge table",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a knowledge table into postgres, replacing what is there",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			table := knowledge.Builtin()
			if file != "" {
				if table, err = knowledge.LoadFile(file); err != nil {
					return err
				}
			}

			ctx := context.Background()
			pool, err := a.database(ctx)
			if err != nil {
				return err
			}
			if err := knowledge.NewPGStore(pool).Seed(ctx, table); err != nil {
				return fmt.Errorf("seed knowledge table: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d concept(s) and %d condition(s).\n",
				len(table.Concepts()), len(table.Conditions()))
			return nil
		},
	}
	seedCmd.Flags().String("file", "", "Seed from a YAML, JSON or TOML knowledge file instead of the built-in table")
	cmd.AddCommand(seedCmd)

	return cmd
}
