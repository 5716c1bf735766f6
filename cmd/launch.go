package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/ksb256/searchrev/launch"
	"github.com/spf13/cobra"
)

// LaunchMain is the Main of the most recently built launch command.
var LaunchMain *launch.Main

// NewLaunchCommand returns the command which runs the pipeline on a compute
// launcher.
func NewLaunchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	LaunchMain = launch.NewMain()
	LaunchMain.SetOutput(stdout, stderr)
	launchCommand := &cobra.Command{
		Use:   "launch",
		Short: "run the pipeline once as a local process or on a transient EMR cluster",
		Long: `launch submits "<program> run --input <input> --output <output>" to a
launcher and waits for it to complete. The emr launcher copies the program
from S3 onto a single step cluster which terminates when the step ends.
A failed run is reported and not retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return LaunchMain.Run()
		},
	}
	flags := launchCommand.Flags()
	err := commandeer.Flags(flags, LaunchMain)
	if err != nil {
		panic(err)
	}
	return launchCommand
}

func init() {
	subcommandFns["launch"] = NewLaunchCommand
}
