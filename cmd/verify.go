package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/ksb256/searchrev/ingest"
	"github.com/spf13/cobra"
)

// NewVerifyCommand returns the command which reads back and prints a report.
func NewVerifyCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	m := ingest.NewVerifyMain()
	m.SetOutput(stdout)
	verifyCommand := &cobra.Command{
		Use:   "verify",
		Short: "parse a written report and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Run()
		},
	}
	err := commandeer.Flags(verifyCommand.Flags(), m)
	if err != nil {
		panic(err)
	}
	return verifyCommand
}

func init() {
	subcommandFns["verify"] = NewVerifyCommand
}
