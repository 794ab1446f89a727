package cli

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jathurchan/lockdir/lock"
)

var runWait bool

var runCmd = &cobra.Command{
	Use:   "run <path> -- <command> [args...]",
	Short: "Run a command while holding the lock on a path",
	Long: `Acquire the lock on <path>, run the given command, and release the
lock when the command exits. If the lock is lost while the command runs
(for example because the machine slept past the staleness threshold), the
command is killed.

The exit code is the command's own exit code; 125 indicates lockdir
itself failed.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runLocked(args[0], args[1:]))
	},
}

func init() {
	runCmd.Flags().BoolVar(&runWait, "wait", false, "retry until the lock becomes free")
	rootCmd.AddCommand(runCmd)
}

func runLocked(path string, command []string) int {
	cfg, err := loadEffectiveConfig()
	if err != nil {
		fmtErr("%v", err)
		return 125
	}
	if runWait && cfg.Retries <= 0 {
		cfg.Retries = 30
	}
	opts, err := acquireOptions(cfg)
	if err != nil {
		fmtErr("%v", err)
		return 125
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	compromised := make(chan error, 1)
	opts = append(opts, lock.WithCompromiseHandler(func(err error) {
		compromised <- err
		cancel()
	}))

	mgr := newManager(cfg)
	h, err := mgr.Acquire(ctx, path, opts...)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			fmtErr("%s is locked by another process", path)
		} else {
			fmtErr("acquire %s: %v", path, err)
		}
		return 125
	}

	child := exec.CommandContext(ctx, command[0], command[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	// Forward termination signals to the child rather than dying with the
	// lock still held.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			if child.Process != nil {
				_ = child.Process.Signal(sig)
			}
		}
	}()

	runErr := child.Run()

	releaseErr := h.Release(context.Background())

	select {
	case cerr := <-compromised:
		fmtErr("lock on %s was lost while the command ran: %v", path, cerr)
		return 125
	default:
	}

	if releaseErr != nil && !errors.Is(releaseErr, lock.ErrAlreadyReleased) {
		fmtErr("release %s: %v", path, releaseErr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode()
		}
		fmtErr("run %s: %v", command[0], runErr)
		return 125
	}
	_ = outputJSON(map[string]any{"path": path, "status": "ok"})
	return 0
}
