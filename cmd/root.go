package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ncn914491/blockscan"
	config2 "github.com/Ncn914491/blockscan/config"
	"github.com/Ncn914491/blockscan/logging"
	"github.com/Ncn914491/blockscan/regexp"
	"github.com/Ncn914491/blockscan/report"
	"github.com/Ncn914491/blockscan/version"
)

const banner = `
  ■ □
  □ ■  blockscan %s

`

const configDescription = `config file path
order of precedence:
1. --config/-c
2. env var BLOCKSCAN_CONFIG
3. (target path)/.blockscan.toml
If none of the three options are used, blockscan will use the default config`

const configName = ".blockscan"

var rootCmd = &cobra.Command{
	Use:     "blockscan",
	Short:   "blockscan finds blocking calls hiding in coroutine code",
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set the timeout for all the commands
		if timeout, err := cmd.Flags().GetInt("timeout"); err != nil {
			return err
		} else if timeout > 0 {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
			cmd.SetContext(ctx)
			cobra.OnFinalize(cancel)
		}

		if engine, err := cmd.Flags().GetString("regex-engine"); err != nil {
			return err
		} else if engine != "" {
			regexp.SetEngine(engine)
		}
		return nil
	},
}

const (
	BYTE     = 1.0
	KILOBYTE = BYTE * 1000
	MEGABYTE = KILOBYTE * 1000
	GIGABYTE = MEGABYTE * 1000
)

func init() {
	cobra.OnInitialize(initLog)
	rootCmd.PersistentFlags().StringP("config", "c", "", configDescription)
	rootCmd.PersistentFlags().Int("exit-code", 1, "exit code when blocking calls have been encountered")
	rootCmd.PersistentFlags().StringP("report-path", "r", "", "report file (use \"-\" for stdout)")
	rootCmd.PersistentFlags().StringP("report-format", "f", "", "output format (json, csv, template)")
	rootCmd.PersistentFlags().String("report-template", "", "template file used to generate the report (implies --report-format=template)")
	rootCmd.PersistentFlags().StringP("baseline-path", "b", "", "path to baseline with findings that can be ignored")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show verbose output from scan")
	rootCmd.PersistentFlags().Bool("no-color", false, "turn off color for verbose output")
	rootCmd.PersistentFlags().Bool("no-banner", false, "suppress banner")
	rootCmd.PersistentFlags().Int("max-target-megabytes", 0, "files larger than this will be skipped")
	rootCmd.PersistentFlags().StringSlice("enable-rule", []string{}, "only enable specific rules by id")
	rootCmd.PersistentFlags().StringP("blockscan-ignore-path", "i", ".", "path to .blockscanignore file or folder containing one")
	rootCmd.PersistentFlags().String("regex-engine", "", "regex engine to use (stdlib, re2)")
	rootCmd.PersistentFlags().Int("timeout", 0, "set a timeout for blockscan commands in seconds (default \"0\", no timeout is set)")

	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logging.Fatal().Msgf("err binding config %s", err.Error())
	}
}

var logLevel = zerolog.InfoLevel

func initLog() {
	ll, err := rootCmd.Flags().GetString("log-level")
	if err != nil {
		logging.Fatal().Msg(err.Error())
	}

	switch strings.ToLower(ll) {
	case "trace":
		logLevel = zerolog.TraceLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "err", "error":
		logLevel = zerolog.ErrorLevel
	case "fatal":
		logLevel = zerolog.FatalLevel
	default:
		logging.Warn().Msgf("unknown log level: %s", ll)
	}
	logging.Logger = logging.Logger.Level(logLevel)
}

func initConfig(source string) {
	hideBanner, err := rootCmd.Flags().GetBool("no-banner")
	viper.SetConfigType("toml")

	if err != nil {
		logging.Fatal().Msg(err.Error())
	}
	if !hideBanner {
		_, _ = fmt.Fprintf(os.Stderr, banner, version.Version)
	}

	logging.Debug().Msgf("using %s regex engine", regexp.Version())

	cfgPath, err := rootCmd.Flags().GetString("config")
	if err != nil {
		logging.Fatal().Msg(err.Error())
	}
	if cfgPath != "" {
		viper.SetConfigFile(cfgPath)
		logging.Debug().Msgf("using blockscan config %s from `--config`", cfgPath)
	} else if os.Getenv("BLOCKSCAN_CONFIG") != "" {
		envPath := os.Getenv("BLOCKSCAN_CONFIG")
		viper.SetConfigFile(envPath)
		logging.Debug().Msgf("using blockscan config from BLOCKSCAN_CONFIG env var: %s", envPath)
	} else {
		fileInfo, err := os.Stat(source)
		if err != nil {
			logging.Fatal().Msg(err.Error())
		}

		if !fileInfo.IsDir() {
			logging.Debug().Msgf("--source=%s is a file, using default config", source)
			if err = viper.ReadConfig(strings.NewReader(config2.DefaultConfig)); err != nil {
				logging.Fatal().Msgf("err reading toml %s", err.Error())
			}
			return
		}

		if _, err := os.Stat(filepath.Join(source, configName+".toml")); os.IsNotExist(err) {
			logging.Debug().Msgf("no blockscan config found in path %s, using default config", source)
			if err = viper.ReadConfig(strings.NewReader(config2.DefaultConfig)); err != nil {
				logging.Fatal().Msgf("err reading default config toml %s", err.Error())
			}
			return
		}

		logging.Debug().Msgf("using blockscan config %s from `(--source)/%s.toml`", filepath.Join(source, configName+".toml"), configName)
		viper.AddConfigPath(source)
		viper.SetConfigName(configName)
	}
	if err := viper.ReadInConfig(); err != nil {
		logging.Fatal().Msgf("unable to load blockscan config, err: %s", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if strings.Contains(err.Error(), "unknown flag") {
			// exit code 126: Command invoked cannot execute
			os.Exit(126)
		}
		logging.Fatal().Msg(err.Error())
	}
}

func Config(cmd *cobra.Command) config2.Config {
	var rc config2.RawConfig
	if err := viper.Unmarshal(&rc); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load config")
	}

	cfg, err := rc.Translate()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.Path, _ = cmd.Flags().GetString("config")

	if enabled, _ := cmd.Flags().GetStringSlice("enable-rule"); len(enabled) > 0 {
		logging.Info().Msg("Overriding enabled rules")
		if err := cfg.EnableRules(enabled); err != nil {
			logging.Fatal().Err(err).Msg("Failed to load config")
		}
	}

	return cfg
}

func findingSummary(cmd *cobra.Command, findings []blockscan.Finding, start time.Time, scanErr error, totalBytes uint64) {
	logging.Info().Msgf("scanned ~%s in %s", bytesConvert(totalBytes), FormatDuration(time.Since(start)))
	if scanErr != nil {
		logging.Fatal().Err(scanErr).Msg("scan failed")
	}

	if len(findings) != 0 {
		logging.Warn().Msgf("blocking calls found: %d", len(findings))
	} else {
		logging.Info().Msg("no blocking calls found")
	}

	reportPath := mustGetStringFlag(cmd, "report-path")
	if reportPath != "" {
		reportFormat := mustGetStringFlag(cmd, "report-format")
		reportTemplate := mustGetStringFlag(cmd, "report-template")
		if err := report.Write(findings, reportFormat, reportPath, reportTemplate); err != nil {
			logging.Fatal().Err(err).Msg("could not write report")
		}
	}

	if len(findings) != 0 {
		os.Exit(mustGetIntFlag(cmd, "exit-code"))
	}
}

func bytesConvert(bytes uint64) string {
	unit := ""
	value := float32(bytes)

	switch {
	case bytes >= GIGABYTE:
		unit = "GB"
		value = value / GIGABYTE
	case bytes >= MEGABYTE:
		unit = "MB"
		value = value / MEGABYTE
	case bytes >= KILOBYTE:
		unit = "KB"
		value = value / KILOBYTE
	case bytes >= BYTE:
		unit = "bytes"
	case bytes == 0:
		return "0"
	}

	stringValue := strings.TrimSuffix(
		fmt.Sprintf("%.2f", value), ".00",
	)

	return fmt.Sprintf("%s %s", stringValue, unit)
}

func FormatDuration(d time.Duration) string {
	scale := 100 * time.Second
	// look for the max scale that is smaller than d
	for scale > d {
		scale = scale / 10
	}
	return d.Round(scale / 100).String()
}

func mustGetBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		logging.Fatal().Err(err).Msgf("could not get flag: %s", name)
	}
	return value
}

func mustGetIntFlag(cmd *cobra.Command, name string) int {
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		logging.Fatal().Err(err).Msgf("could not get flag: %s", name)
	}
	return value
}

func mustGetStringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		logging.Fatal().Err(err).Msgf("could not get flag: %s", name)
	}
	return value
}
