package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/ksb256/searchrev/ingest"
	"github.com/spf13/cobra"
)

// RunMain is the Main of the most recently built run command.
var RunMain *ingest.Main

// NewRunCommand returns the command which runs the pipeline once.
func NewRunCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	RunMain = ingest.NewMain()
	RunMain.SetOutput(stdout)
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "attribute revenue in a hit feed to search keywords and write the report",
		Long: `run reads a tab separated hit feed (from a file, an http(s) URL, S3, or a
Kafka topic), joins purchase revenue to the external search referral of each
visitor, and writes the report, one row per search engine domain and
keyword, highest revenue first. The report is written under --output as
<date>_SearchKeyWordPerformance.tab, and optionally to ClickHouse and Pilosa.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err := RunMain.Run()
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Done: %v\n", time.Since(start))
			return nil
		},
	}
	flags := runCommand.Flags()
	err := commandeer.Flags(flags, RunMain)
	if err != nil {
		panic(err)
	}
	return runCommand
}

func init() {
	subcommandFns["run"] = NewRunCommand
}
