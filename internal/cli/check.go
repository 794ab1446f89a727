package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Report whether a path is currently locked",
	Long: `Check whether a live lock artifact exists for <path>. A stale
artifact counts as unlocked. Exits 0 if the path is free and 3 if it is
locked.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(checkLock(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkLock(path string) int {
	cfg, err := loadEffectiveConfig()
	if err != nil {
		fmtErr("%v", err)
		return 125
	}
	opts, err := acquireOptions(cfg)
	if err != nil {
		fmtErr("%v", err)
		return 125
	}

	mgr := newManager(cfg)
	held, err := mgr.Check(context.Background(), path, opts...)
	if err != nil {
		fmtErr("check %s: %v", path, err)
		return 125
	}

	if jsonOutput {
		_ = outputJSON(map[string]any{"path": path, "locked": held})
	} else if held {
		fmt.Printf("%s is locked\n", path)
	} else {
		fmt.Printf("%s is free\n", path)
	}

	if held {
		return 3
	}
	return 0
}
