package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"tfbpdash/internal/config"
	"tfbpdash/internal/container"
	apperrors "tfbpdash/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// session is the configuration shared by every subcommand, resolved once
// before the subcommand runs
type session struct {
	envFile string
	*container.Container
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetCode(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &session{}

	rootCmd := &cobra.Command{
		Use:   "rankresponse",
		Short: "Rank-response analysis of transcription factor binding and perturbation data",
		Long: `Rank-response analysis of transcription factor binding and perturbation data.

Input is an .xlsx workbook with a "metadata" sheet and one gene table sheet
per raw-data key (columns rank_bin, responsive, random).

Analysis defaults are read from the environment (and an optional .env file):
RANK_CEILING, BASELINE_STEP, CONFIDENCE_LEVEL, ALTERNATIVE, CI_METHOD,
BASELINE_ALPHA, BASELINE_POLICY, WORKERS, BINDING_SOURCE_NAMES,
PERTURBATION_SOURCE_NAMES, LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.envFile, "env-file", ".env", "Environment file loaded before configuration")

	rootCmd.AddCommand(
		newRankResponseCmd(rt),
		newIntersectCmd(rt),
		newDistributionCmd(rt),
		newCorrelateCmd(rt),
	)

	return rootCmd
}

func (rt *session) load(stderr io.Writer) error {
	// a missing env file is fine, the process environment still applies
	if err := godotenv.Load(rt.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrapf(apperrors.ConfigInvalid(err.Error()), "failed to load %s", rt.envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cfg, stderr)
	if err != nil {
		return apperrors.Wrap(err, "failed to initialize")
	}
	rt.Container = c
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return apperrors.Wrap(err, "failed to encode output")
	}
	return nil
}
