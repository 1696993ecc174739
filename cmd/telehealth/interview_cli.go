package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
)

func interviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run a symptom interview in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			age, _ := cmd.Flags().GetInt("age")
			sex, _ := cmd.Flags().GetString("sex")
			symptoms, _ := cmd.Flags().GetStringSlice("symptom")
			text, _ := cmd.Flags().GetString("text")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			table, err := a.knowledgeTable(ctx)
			if err != nil {
				return err
			}
			reasoner, err := a.reasoner(ctx, table)
			if err != nil {
				return err
			}

			ids := append([]string(nil), symptoms...)
			if text != "" {
				res, err := a.extractor(table).Extract(ctx, text)
				if err != nil {
					return err
				}
				printMentions(cmd.OutOrStdout(), res)
				ids = append(ids, res.ConceptIDs()...)
			}

			iv := interview.New(reasoner, a.limits(), interview.WithLogger(a.logger))
			return runTerminal(ctx, iv, age, interview.Sex(sex), ids, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("age", 0, "Patient age in years")
	cmd.Flags().String("sex", "", "Patient sex (male or female)")
	cmd.Flags().StringSlice("symptom", nil, "Initial symptom concept id, repeatable")
	cmd.Flags().String("text", "", "Free-text description of the complaint")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("sex")
	return cmd
}

var (
	promptColor = color.New(color.Bold)
	levelColors = map[interview.TriageLevel]*color.Color{
		interview.TriageEmergency:    color.New(color.FgRed, color.Bold),
		interview.TriageConsultation: color.New(color.FgYellow, color.Bold),
		interview.TriageSelfCare:     color.New(color.FgGreen, color.Bold),
	}
)

// runTerminal drives an interview over a line-oriented reader and writer. The
// interview ends when the reasoner stops, the patient types q, or input runs
// out. The triage result is printed in every case.
func runTerminal(ctx context.Context, iv *interview.Interview, age int, sex interview.Sex, ids []string, in io.Reader, out io.Writer) error {
	if len(ids) == 0 {
		return errors.New("no symptoms to start from, pass --symptom or a --text the extractor recognises")
	}
	c, err := iv.Start(ctx, age, sex, ids)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	for c.Status == interview.StatusActive && c.CurrentQuestion != nil {
		answers, quit := ask(sc, out, c.CurrentQuestion)
		if quit {
			fmt.Fprintln(out, "Interview ended early.")
			if c, err = iv.Complete(); err != nil {
				return err
			}
			break
		}
		next, err := iv.AnswerGroup(ctx, answers)
		var ve *interview.ValidationError
		switch {
		case errors.As(err, &ve):
			fmt.Fprintf(out, "  %s\n", ve.Message)
			continue
		case err != nil:
			return err
		}
		c = next
	}

	tr := c.Triage
	if tr == nil {
		if tr, err = iv.RequestTriage(ctx); err != nil {
			return err
		}
	}
	printSummary(out, c, tr)
	return nil
}

// ask prompts for every item of q. It reports quit when the patient types q
// or the input is exhausted.
func ask(sc *bufio.Scanner, out io.Writer, q *interview.Question) ([]interview.Answer, bool) {
	fmt.Fprintln(out)
	promptColor.Fprintln(out, q.Prompt)
	answers := make([]interview.Answer, 0, len(q.Items))
	for _, it := range q.Items {
		for {
			if len(q.Items) > 1 {
				fmt.Fprintf(out, "  %s? ", it.Name)
			}
			fmt.Fprint(out, "[y/n/?/q] ")
			if !sc.Scan() {
				fmt.Fprintln(out)
				return nil, true
			}
			state, quit, ok := parseAnswer(sc.Text())
			if quit {
				return nil, true
			}
			if !ok {
				fmt.Fprintln(out, "  Please answer y (yes), n (no), ? (don't know) or q (finish).")
				continue
			}
			answers = append(answers, interview.Answer{ConceptID: it.ConceptID, State: state})
			break
		}
	}
	return answers, false
}

func parseAnswer(line string) (state interview.EvidenceState, quit, ok bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return interview.StatePresent, false, true
	case "n", "no":
		return interview.StateAbsent, false, true
	case "?", "dk", "don't know", "unknown":
		return interview.StateUnknown, false, true
	case "q", "quit":
		return "", true, true
	}
	return "", false, false
}

func printSummary(out io.Writer, c *interview.PatientCase, tr *interview.TriageResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Questions answered: %d\n", c.QuestionsAsked)
	if len(c.Conditions) > 0 {
		fmt.Fprintln(out, "Possible conditions:")
		for _, sc := range c.Conditions {
			name := sc.CommonName
			if name == "" {
				name = sc.Name
			}
			fmt.Fprintf(out, "  %3.0f%%  %s\n", sc.Probability*100, name)
		}
	}

	lc, ok := levelColors[tr.Level]
	if !ok {
		lc = promptColor
	}
	lc.Fprintf(out, "Triage: %s (%s)\n", tr.Label, tr.Level)
	if tr.Description != "" {
		fmt.Fprintln(out, tr.Description)
	}
	for _, sc := range tr.SeriousConditions {
		fmt.Fprintf(out, "  serious: %s\n", sc.Name)
	}
}
