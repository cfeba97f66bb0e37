package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deskpilot-core/deskpilot/internal/risk"
)

var classifyAppleScript bool

// classifyCmd is an offline dry-run of the command classifier, handy for
// checking what the gate would do before letting the agent near a command.
var classifyCmd = &cobra.Command{
	Use:   "classify <command>",
	Short: "Show how a shell command or AppleScript would be risk-tiered",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := strings.Join(args, " ")
		var result risk.TierResult
		if classifyAppleScript {
			result = risk.ClassifyAppleScript(source)
		} else {
			result = risk.ClassifyShellCommand(source)
		}
		fmt.Printf("tier:     %d\n", result.Tier)
		if result.Category != "" {
			fmt.Printf("category: %s\n", result.Category)
		}
		if result.Reason != "" {
			fmt.Printf("reason:   %s\n", result.Reason)
		}
		if result.Prompt != "" {
			fmt.Printf("prompt:   %s\n", result.Prompt)
		}
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyAppleScript, "applescript", false, "treat the input as AppleScript")
	rootCmd.AddCommand(classifyCmd)
}
