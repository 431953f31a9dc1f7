package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelaba/job-parser/internal/domain"
	"github.com/abelaba/job-parser/internal/messaging"
)

// errFailed is returned after a FAILURE envelope has been printed, so the
// process exits non-zero.
var errFailed = errors.New("request failed")

// dispatch sends req through the same dispatcher the HTTP /message route
// uses and prints the envelope.
func dispatch(cmd *cobra.Command, req messaging.Request) error {
	return withApp(cmd.Context(), func(a *app) error {
		env := a.dispatcher.Handle(cmd.Context(), req)
		return printEnvelope(cmd.OutOrStdout(), env)
	})
}

func printEnvelope(w io.Writer, env messaging.Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return err
	}
	if env.Message != messaging.Success {
		return errFailed
	}
	return nil
}

func newStreakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current and longest daily application streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dispatch(cmd, messaging.GetStreak{})
		},
	}
}

func newStatsCmd() *cobra.Command {
	var rng string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count saved postings by status, company and country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := domain.StatsRange(strings.ToUpper(rng))
			if r.Normalize() != r {
				return fmt.Errorf("unknown range %q (want PASTWEEK, PASTMONTH or PASTYEAR)", rng)
			}
			return dispatch(cmd, messaging.GetStats{Range: r})
		},
	}
	cmd.Flags().StringVar(&rng, "range", string(domain.RangePastYear), "PASTWEEK, PASTMONTH or PASTYEAR")
	return cmd
}

func newSaveCmd() *cobra.Command {
	var url, file string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Extract a posting's details and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readText(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return dispatch(cmd, messaging.SaveJob{URL: url, Description: text})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "posting URL (required)")
	cmd.Flags().StringVar(&file, "file", "-", "file holding the posting text, - for stdin")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func readText(stdin io.Reader, file string) (string, error) {
	if file == "-" || file == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read posting: %w", err)
	}
	return string(b), nil
}
