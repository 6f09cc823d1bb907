package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ncn914491/blockscan/config"
	"github.com/Ncn914491/blockscan/logging"
)

// DefaultVerifyPath is the file the verify command checks when no path is
// given: the intent handler of the PDF toolkit app this tool was written for.
const DefaultVerifyPath = "app/src/main/java/com/yourname/pdftoolkit/ui/MainActivity.kt"

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "check one source file against the verification rules",
	Long: `Verify loads a single file into memory and applies every verification rule
(rules carrying report messages) as one multi-line pattern match, printing the
rule's found or not-found line. The default config verifies that the
ACTION_VIEW/SEND intent handler does not copy to cache inside runBlocking.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) {
	path := DefaultVerifyPath
	if len(args) == 1 && args[0] != "" {
		path = args[0]
	}

	initConfig(".")
	cfg := Config(cmd)

	if err := verifyFile(cfg, path, cmd.OutOrStdout()); err != nil {
		logging.Fatal().Err(err).Str("path", path).Msg("could not read file")
	}
}

// verifyFile loads the file content as a single string, applies each
// verification rule as one non-anchored scan, and prints exactly one line per
// rule. An unreadable file is returned as an error without printing anything.
func verifyFile(cfg config.Config, path string, w io.Writer) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(raw)

	for _, id := range cfg.RuleOrder {
		rule := cfg.Rules[id]
		if !rule.IsVerification() || rule.Regex == nil {
			continue
		}
		if rule.Regex.MatchString(content) {
			fmt.Fprintln(w, rule.Report.Found)
		} else {
			fmt.Fprintln(w, rule.Report.NotFound)
		}
	}
	return nil
}
