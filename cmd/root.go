package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/app"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
)

var (
	cfgFile   string
	action    string
	regions   string
	logLevel  string
	logFormat string
	reporter  string
)

var bootstrap = app.BuildApplicationFromViper

var rootCmd = &cobra.Command{
	Use:   "ec2-terminator",
	Short: "Stops or terminates every running EC2 instance in scope.",
	Long: `EC2 Terminator performs scheduled fleet hygiene: it discovers all
running EC2 instances across the account's regions (or a configured subset)
and applies a single lifecycle action (STOP or TERMINATE) to every one of
them, reporting a per-instance outcome summary.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		application, bootstrapErr := bootstrap(cmd.Context(), viper.GetViper())
		if bootstrapErr != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Application initialization failed: %v\n", bootstrapErr)
			if appErr := (*apperrors.AppError)(nil); errors.As(bootstrapErr, &appErr) {
				if appErr.IsUserFacing {
					fmt.Fprintf(os.Stderr, "Error Details: %s\n", appErr.Message)
					if appErr.SuggestedAction != "" {
						fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.SuggestedAction)
					}
				}
			}
			return bootstrapErr
		}

		summary, runErr := application.Run(cmd.Context())
		if summary == nil && runErr != nil {
			userMsg, suggestion, _ := apperrors.GetUserFacingMessage(runErr)
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
			if suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
			}
			return runErr
		}

		// A produced summary means the invocation completed; failed
		// instances are reported inside it and retried on the next
		// schedule, not via a non-zero exit.
		return nil
	},
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .ec2-terminator.yaml)")
	rootCmd.PersistentFlags().StringVar(&action, "action", "", "Sweep action to apply to every running instance (STOP or TERMINATE, required)")
	rootCmd.PersistentFlags().StringVar(&regions, "regions", "", "Comma-separated regions to sweep (default: every enabled region)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&reporter, "reporter", "", "Summary reporter (text, json)")

	viper.BindPFlag("sweep.action", rootCmd.PersistentFlags().Lookup("action"))
	viper.BindPFlag("sweep.regions", rootCmd.PersistentFlags().Lookup("regions"))
	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("settings.reporter", rootCmd.PersistentFlags().Lookup("reporter"))

	viper.SetEnvPrefix("EC2_TERMINATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".ec2-terminator")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using configuration file:", viper.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults and environment variables.")
		} else {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}

	return nil
}
