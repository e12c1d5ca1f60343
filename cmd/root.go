// Package cmd provides the root command and CLI setup for groundskeeper.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	"groundskeeper.dev/pkg/groundskeeper/internal/controller"
	"groundskeeper.dev/pkg/groundskeeper/internal/domain"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
	"groundskeeper.dev/pkg/groundskeeper/pkg"
)

var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var stateStore adapter.StateStore
var gitAdapter adapter.GitAdapter
var processRunner adapter.ProcessRunner

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// targetFlag points at the project tree to maintain. Empty means find the
// nearest package.json upward from the working directory.
var targetFlag string

// runJournal is the journal for the current invocation, closed by the root
// command's PersistentPostRun.
var runJournal pkg.Journal[m.OperationReport]

var dryRunFlag bool
var safetyFlag string
var excludePatterns []string
var yesFlag bool
var branchFlag string
var prFlag bool
var noCommitFlag bool
var verboseFlag bool
var tuiFlag bool
var memoryLimitFlag int

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewLocalReportStore()
	stateStore = adapter.NewLocalStateStore(fsAdapter)
	gitAdapter = adapter.NewLocalGitAdapter()
	processRunner = adapter.NewLocalProcessRunner()
}

const rootLongDescription = `Groundskeeper keeps a JavaScript/TypeScript source tree tidy: it sorts
files into category directories, rewrites the imports the moves broke,
removes what nothing references, repairs known bug patterns and style
drift, and remembers which repairs keep failing so it backs off instead
of thrashing.

All mutations respect the active safety mode and are backed up before
they happen.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groundskeeper",
		Short: "Codebase maintenance for JS/TS projects",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", verboseFlag)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if runJournal != nil {
				if err := runJournal.Close(); err != nil {
					slog.Warn("failed to close run journal", "error", err)
				}

				runJournal = nil
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for maintenance reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringVarP(&targetFlag, targetFlagName, "t", "", "project root to maintain (default: nearest package.json)")
	cmd.PersistentFlags().BoolVarP(&dryRunFlag, dryRunFlagName, "n", false, "report what would change without touching the tree")
	cmd.PersistentFlags().StringVarP(&safetyFlag, safetyFlagName, "s", viper.GetString(safetyConfigKey), "safety mode: safe, moderate or aggressive")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(safetyFlagName), safetyConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&yesFlag, yesFlagName, "y", false, "skip confirmation prompts")
	cmd.PersistentFlags().StringVar(&branchFlag, branchFlagName, "", "commit applied changes on this branch")
	cmd.PersistentFlags().BoolVar(&prFlag, prFlagName, false, "push and open a pull request for applied changes")
	cmd.PersistentFlags().BoolVar(&noCommitFlag, noCommitFlagName, false, "never commit, leave changes in the working tree")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&tuiFlag, tuiFlagName, false, "interactive terminal output")
	cmd.PersistentFlags().IntVar(&memoryLimitFlag, memoryLimitFlagName, viper.GetInt(memoryLimitConfigKey), "soft heap limit in MB, 0 disables monitoring")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(memoryLimitFlagName), memoryLimitConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// keepJournals bounds how many past run journals stay in the reports
// directory.
const keepJournals = 10

// pruneOldJournals removes the oldest run journals once the kept count is
// reached, leaving room for the journal of the current invocation.
func pruneOldJournals(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, "run-journal-*.gob"))
	if err != nil || len(matches) < keepJournals {
		return
	}

	// names embed the unix timestamp, so lexical order is age order
	sort.Strings(matches)

	for _, old := range matches[:len(matches)-keepJournals+1] {
		_ = os.Remove(old)
	}
}

// yieldOrError converts a cooperative yield into a clean exit. Anything
// else stays an error.
func yieldOrError(err error) error {
	var yield *domain.ErrYield
	if errors.As(err, &yield) {
		fmt.Fprintln(os.Stderr, yield.Error())

		return nil
	}

	return err
}

func resolveTarget() (m.Path, error) {
	if targetFlag != "" {
		return m.Path(targetFlag), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return fsAdapter.FindProjectRoot(m.Path(cwd))
}

func buildUI(cmd *cobra.Command) controller.UI {
	if tuiFlag {
		return controller.NewTUI(cmd.OutOrStdout())
	}

	return controller.NewSimpleUI(cmd)
}

// buildWorkflow resolves flags and config into a ready Workflow. Paths for
// reports, backups, state and locks live under the target tree unless
// configured absolute.
func buildWorkflow(cmd *cobra.Command) (*domain.Workflow, controller.UI, error) {
	target, err := resolveTarget()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project root: %w", err)
	}

	safety, err := m.ParseSafetyMode(viper.GetString(safetyConfigKey))
	if err != nil {
		return nil, nil, err
	}

	underTarget := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}

		return filepath.Join(string(target), p)
	}

	reportsDir := underTarget(viper.GetString(outputFlagName))

	policy, found, err := adapter.LoadPolicy(fsAdapter, m.Path(underTarget(viper.GetString(policyFileConfigKey))))
	if err != nil {
		return nil, nil, err
	}

	if !found {
		policy = nil // workflow falls back to the built-in policy
	}

	ui := buildUI(cmd)

	pruneOldJournals(reportsDir)

	// lazily created: a read-only invocation leaves no journal file behind
	runJournal = pkg.NewLazyJournal[m.OperationReport](
		filepath.Join(reportsDir, fmt.Sprintf("run-journal-%d.gob", time.Now().Unix())))

	deps := domain.WorkflowDeps{
		FS:      fsAdapter,
		Backup:  adapter.NewLocalBackupStore(underTarget(viper.GetString(backupDirConfigKey))),
		Reports: reportStore,
		State:   stateStore,
		Git:     gitAdapter,
		Runner:  processRunner,
		Confirm: ui,
		History: runJournal,
	}

	opts := domain.WorkflowOptions{
		Target:             target,
		DryRun:             dryRunFlag,
		Safety:             safety,
		Exclude:            viper.GetStringSlice(excludeConfigKey),
		Workers:            viper.GetInt(workersConfigKey),
		ReportsDir:         m.Path(reportsDir),
		BackupDir:          m.Path(underTarget(viper.GetString(backupDirConfigKey))),
		StatePath:          m.Path(underTarget(viper.GetString(stateFileConfigKey))),
		LockDir:            underTarget(viper.GetString(lockDirConfigKey)),
		MemoryLimitMB:      viper.GetInt(memoryLimitConfigKey),
		Branch:             branchFlag,
		OpenPR:             prFlag,
		NoCommit:           noCommitFlag,
		Yes:                yesFlag,
		SkipIfRecentWithin: time.Duration(viper.GetInt(skipRecentConfigKey)) * time.Minute,
	}

	return domain.NewWorkflow(deps, opts, policy), ui, nil
}
