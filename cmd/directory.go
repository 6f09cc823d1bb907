package cmd

import (
	"time"

	"github.com/fatih/semgroup"
	"github.com/spf13/cobra"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/logging"
	"github.com/Ncn914491/blockscan/scan"
	"github.com/Ncn914491/blockscan/sources/files"
)

func init() {
	rootCmd.AddCommand(directoryCmd)
	directoryCmd.Flags().Bool("follow-symlinks", false, "scan files that are symlinks to other files")
}

var directoryCmd = &cobra.Command{
	Use:     "dir [flags] [path]",
	Aliases: []string{"file", "directory"},
	Short:   "scan directories or files for blocking calls",
	Run:     runDirectory,
}

func runDirectory(cmd *cobra.Command, args []string) {
	// grab source
	source := "."
	if len(args) == 1 {
		source = args[0]
		if source == "" {
			source = "."
		}
	}

	initConfig(source)

	// setup config (aka, the thing that defines rules)
	cfg := Config(cmd)

	followSymlinks := mustGetBoolFlag(cmd, "follow-symlinks")
	maxTargetMegaBytes := mustGetIntFlag(cmd, "max-target-megabytes")

	src := &files.Files{
		Config:         &cfg,
		FollowSymlinks: followSymlinks,
		MaxFileSize:    maxTargetMegaBytes * 1_000_000,
		Path:           source,
		Sema:           semgroup.NewGroup(cmd.Context(), 10),
	}

	scanner := scan.NewScanner(cmd.Context(), &cfg, 10)

	// Load ignore files
	ignorePath := mustGetStringFlag(cmd, "blockscan-ignore-path")
	scanner.SetIgnore(scan.LoadIgnoreFiles(ignorePath, source))

	p := scan.NewPipeline(cfg, src, *scanner)

	if baselinePath := mustGetStringFlag(cmd, "baseline-path"); baselinePath != "" {
		if err := p.AddBaseline(baselinePath, source); err != nil {
			logging.Fatal().Err(err).Msg("could not load baseline")
		}
	}

	var findings []blockscan.Finding
	verbose := mustGetBoolFlag(cmd, "verbose")
	noColor := mustGetBoolFlag(cmd, "no-color")
	start := time.Now()

	err := p.Run(cmd.Context(), func(finding blockscan.Finding, err error) error {
		if err != nil {
			return err
		}
		if verbose {
			scan.PrintFinding(finding, noColor)
		}
		findings = append(findings, finding)
		return nil
	})

	findingSummary(cmd, findings, start, err, p.TotalBytes())
}
