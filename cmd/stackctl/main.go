// File: cmd/stackctl/main.go
// Brief: CLI bootstrap: root command, config binding, error reporting.

// main.go bootstraps stackctl: it builds the root Cobra command, binds
// Viper-backed configuration, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var kubeconfigPath string
	var kubeContext string
	logLevel := "info"
	cmd := &cobra.Command{
		Use:           "stackctl",
		Short:         "Declaratively reconcile stacks of Kubernetes manifests",
		Long:          "stackctl applies a named set of manifests against live cluster state, computing minimal JSON patches and optionally pruning resources no longer declared.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Converge a stack from a manifest directory, pruning strays
  stackctl apply shop --filename ./manifests --prune

  # Preview the pending patches without touching the cluster
  stackctl diff shop --filename ./manifests

  # Tear a stack down
  stackctl delete shop --filename ./manifests`,
	}
	cmd.PersistentFlags().StringVarP(&kubeconfigPath, "kubeconfig", "k", "", "Path to the kubeconfig file to use for CLI requests")
	cmd.PersistentFlags().StringVarP(&kubeContext, "context", "K", "", "Name of the kubeconfig context to use")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for stackctl output (debug, info, warn, error)")

	applyCmd := newApplyCommand(&kubeconfigPath, &kubeContext, &logLevel)
	deleteCmd := newDeleteCommand(&kubeconfigPath, &kubeContext, &logLevel)
	diffCmd := newDiffCommand(&kubeconfigPath, &kubeContext, &logLevel)
	listCmd := newListCommand(&kubeconfigPath, &kubeContext, &logLevel)
	cmd.AddCommand(
		applyCmd,
		deleteCmd,
		diffCmd,
		listCmd,
		newVersionCommand(),
	)
	bindViper(cmd, applyCmd, deleteCmd, diffCmd, listCmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("STACKCTL")
	v.AutomaticEnv()
	configFile := os.Getenv("STACKCTL_CONFIG")
	configureConfigFile(v, configFile)

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "stackctl"))
	}
	v.AddConfigPath(".")
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("%s\nHint: verify network connectivity to the cluster or raise the client timeout.", err)
	case apierrors.IsUnauthorized(err):
		message = fmt.Sprintf("%s\nHint: kubeconfig credentials were rejected. Run 'kubectl config view' to confirm the active user.", err)
	case apierrors.IsForbidden(err):
		message = fmt.Sprintf("%s\nHint: missing Kubernetes permissions. stackctl needs get/list/create/patch/delete on the kinds a stack declares.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
