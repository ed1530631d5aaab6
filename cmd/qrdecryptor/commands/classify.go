package commands

import (
	"io"
	"strings"

	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/qrdecryptor/qrdecryptor/pkg/payload"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [payload]",
	Short: "Classify an already decoded payload",
	Long: `Classifies a decoded payload given as an argument, or read from stdin
when no argument is given, and shows the extracted fields.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	var data string
	if len(args) == 1 {
		data = args[0]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}
		data = strings.TrimRight(string(b), "\r\n")
	}

	snap := session.Snapshot{
		Status: session.Success,
		Result: &session.Result{Result: payload.Classify(data)},
	}
	return newRenderer(cmd.OutOrStdout(), cfg.Output, false).render(snap, nil)
}
