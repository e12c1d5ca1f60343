package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "groundskeeper"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	targetFlagName      = "target"
	outputFlagName      = "output"
	dryRunFlagName      = "dry-run"
	safetyFlagName      = "safety"
	excludeFlagName     = "exclude"
	yesFlagName         = "yes"
	branchFlagName      = "branch"
	prFlagName          = "pr"
	noCommitFlagName    = "no-commit"
	verboseFlagName     = "verbose"
	tuiFlagName         = "tui"
	memoryLimitFlagName = "memory-limit"

	safetyConfigKey      = "run.safety"
	excludeConfigKey     = "paths.exclude"
	workersConfigKey     = "run.workers"
	memoryLimitConfigKey = "run.memory_limit_mb"
	skipRecentConfigKey  = "run.skip_if_recent_minutes"
	backupDirConfigKey   = "paths.backup"
	stateFileConfigKey   = "paths.state"
	lockDirConfigKey     = "paths.lock"
	policyFileConfigKey  = "paths.policy"

	defaultReportsDir  = ".groundskeeper-reports"
	defaultBackupDir   = ".groundskeeper-backup"
	defaultStateFile   = ".groundskeeper-state.json"
	defaultLockDir     = ".groundskeeper-lock"
	defaultPolicyFile  = "groundskeeper-policy.yaml"
	defaultSafety      = "safe"
	defaultWorkers     = 4
	defaultMemoryLimit = 0
	defaultSkipRecent  = 0

	envPrefix = "GROUNDSKEEPER"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".groundskeeper.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(safetyConfigKey, defaultSafety)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(workersConfigKey, defaultWorkers)
	viper.SetDefault(memoryLimitConfigKey, defaultMemoryLimit)
	viper.SetDefault(skipRecentConfigKey, defaultSkipRecent)
	viper.SetDefault(backupDirConfigKey, defaultBackupDir)
	viper.SetDefault(stateFileConfigKey, defaultStateFile)
	viper.SetDefault(lockDirConfigKey, defaultLockDir)
	viper.SetDefault(policyFileConfigKey, defaultPolicyFile)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
