package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/ksb256/searchrev/kafka"
	"github.com/spf13/cobra"
)

// PublishMain is the Main of the most recently built publish command.
var PublishMain *kafka.Main

// NewPublishCommand returns the command which publishes a feed to Kafka.
func NewPublishCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	PublishMain = kafka.NewMain()
	publishCommand := &cobra.Command{
		Use:   "publish",
		Short: "publish a hit feed onto a Kafka topic, one row per message",
		Long: `publish reads a hit feed and sends each row to --topic keyed by the
visitor's ip, so that "run" can consume it with the kafka source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PublishMain.Run()
		},
	}
	flags := publishCommand.Flags()
	err := commandeer.Flags(flags, PublishMain)
	if err != nil {
		panic(err)
	}
	return publishCommand
}

func init() {
	subcommandFns["publish"] = NewPublishCommand
}
