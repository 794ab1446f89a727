package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var unlockForce bool

var unlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Remove the lock artifact left behind for a path",
	Long: `Remove the on-disk lock artifact for <path>. By default only a
stale artifact (one whose holder has stopped renewing it) is removed;
use --force to remove a live one. Forcing removal of a lock whose holder
is still alive defeats the mutual exclusion it provides.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(unlockPath(args[0]))
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&unlockForce, "force", false, "remove the artifact even if its holder looks alive")
	rootCmd.AddCommand(unlockCmd)
}

func unlockPath(path string) int {
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

	ctx := context.Background()
	mgr := newManager(cfg)

	if !unlockForce {
		held, err := mgr.Check(ctx, path, opts...)
		if err != nil {
			fmtErr("check %s: %v", path, err)
			return 125
		}
		if held {
			fmtErr("%s is held by a live holder; use --force to remove anyway", path)
			return 3
		}
	}

	if err := mgr.ForceUnlock(ctx, path, opts...); err != nil {
		fmtErr("unlock %s: %v", path, err)
		return 125
	}

	if jsonOutput {
		_ = outputJSON(map[string]any{"path": path, "status": "unlocked"})
	} else {
		fmt.Printf("unlocked %s\n", path)
	}
	return 0
}
