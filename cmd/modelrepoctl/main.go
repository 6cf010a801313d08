package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// buildRootCmd constructs the operator CLI's command tree, wired to the
// client methods in client.go.
func buildRootCmd() *cobra.Command {
	client := &Client{BaseURL: "http://127.0.0.1:8080"}

	root := &cobra.Command{
		Use:           "modelrepoctl",
		Short:         "Operator CLI for the model repository manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&client.BaseURL, "addr", client.BaseURL, "base URL of the modelrepod HTTP API")

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Trigger an immediate repository poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Poll(cmd.OutOrStdout())
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Show the repository index",
	}
	var readyOnly bool
	indexCmd.Flags().BoolVar(&readyOnly, "ready-only", false, "show only ready models")
	indexCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return client.Index(cmd.OutOrStdout(), readyOnly)
	}

	loadCmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Explicitly load a model",
		Args:  cobra.ExactArgs(1),
	}
	var loadParams []string
	loadCmd.Flags().StringArrayVar(&loadParams, "param", nil, "key=value parameter, may be repeated")
	loadCmd.RunE = func(cmd *cobra.Command, args []string) error {
		params, err := parseKV(loadParams)
		if err != nil {
			return err
		}
		return client.Load(cmd.OutOrStdout(), args[0], params)
	}

	var cascade bool
	unloadCmd := &cobra.Command{
		Use:   "unload <name>",
		Short: "Explicitly unload a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Unload(cmd.OutOrStdout(), args[0], cascade)
		},
	}
	unloadCmd.Flags().BoolVar(&cascade, "cascade", false, "also unload every dependent ensemble")

	registerCmd := &cobra.Command{
		Use:   "register-repo <path>",
		Short: "Register a model repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.RegisterRepo(cmd.OutOrStdout(), args[0])
		},
	}

	unregisterCmd := &cobra.Command{
		Use:   "unregister-repo <path>",
		Short: "Unregister a model repository, unloading everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.UnregisterRepo(cmd.OutOrStdout(), args[0])
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show per-version readiness for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Status(cmd.OutOrStdout(), args[0])
		},
	}

	unloadAllCmd := &cobra.Command{
		Use:   "unload-all",
		Short: "Unload every model across every repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.UnloadAll(cmd.OutOrStdout())
		},
	}

	root.AddCommand(pollCmd, indexCmd, loadCmd, unloadCmd, registerCmd, unregisterCmd, statusCmd, unloadAllCmd)
	return root
}
