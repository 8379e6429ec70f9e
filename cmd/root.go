package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the drawpool command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "drawpool",
		Short:         "Draw pool service",
		Long:          "Sells numbered shares in rounds and draws a verifiable winner once a round is full.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			return nil
		},
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newCorrectCommand())
	root.AddCommand(newDrawCommand())
	root.AddCommand(newVerifyCommand())
	root.AddCommand(newVoidCommand())
	root.AddCommand(newRoundCommand())
	root.AddCommand(newUserCommand())

	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the draw worker and the consistency schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	}
}

// configureLogging applies LOG_LEVEL and LOG_FORMAT. Unknown values fall back to
// info and text.
func configureLogging(level, format string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
