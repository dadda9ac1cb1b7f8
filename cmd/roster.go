package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/badge-rename/internal/badge"
	"github.com/kozaktomas/badge-rename/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster <file>",
	Short: "Print the names read from a roster file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)

	rosterCmd.Flags().Bool("first-last", false, "Roster has first and last name columns instead of a name column")
	rosterCmd.Flags().Int("skip-rows", 0, "Roster rows to skip before the header")
}

func runRoster(cmd *cobra.Command, args []string) error {
	names, err := roster.Load(args[0], roster.Options{
		FirstLast: mustGetBool(cmd, "first-last"),
		SkipRows:  mustGetInt(cmd, "skip-rows"),
	})
	if err != nil {
		return err
	}

	rows := make([][]string, len(names))
	for i, name := range names {
		normalized := badge.Normalize(name)
		if normalized == "" {
			normalized = "(never matches)"
		}
		rows[i] = []string{strconv.Itoa(i + 1), name, normalized}
	}
	fmt.Println(renderTable([]string{"#", "Name", "Matched as"}, rows, []columnAlignment{alignRight}))
	fmt.Printf("\n%d names\n", len(names))
	return nil
}
