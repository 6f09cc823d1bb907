package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/scan"
	"github.com/Ncn914491/blockscan/sources/file"
)

func init() {
	rootCmd.AddCommand(stdInCmd)
}

var stdInCmd = &cobra.Command{
	Use:   "stdin",
	Short: "detect blocking calls from stdin",
	Run:   runStdIn,
}

func runStdIn(cmd *cobra.Command, _ []string) {
	// setup config (aka, the thing that defines rules)
	initConfig(".")

	cfg := Config(cmd)

	verbose := mustGetBoolFlag(cmd, "verbose")
	noColor := mustGetBoolFlag(cmd, "no-color")

	// create a File source that reads from stdin
	src := &file.File{
		Content: os.Stdin,
		Path:    "stdin",
		Config:  &cfg,
		Source:  "stdin",
	}

	scanner := scan.NewScanner(cmd.Context(), &cfg, 10)

	ignorePath := mustGetStringFlag(cmd, "blockscan-ignore-path")
	scanner.SetIgnore(scan.LoadIgnoreFiles(ignorePath, "."))

	p := scan.NewPipeline(cfg, src, *scanner)

	var findings []blockscan.Finding
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
