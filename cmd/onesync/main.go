package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbweber/onesync/internal/config"
	"github.com/jbweber/onesync/internal/one"
	"github.com/jbweber/onesync/internal/output"
	"github.com/jbweber/onesync/internal/reconcile"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onesync",
	Short: "onesync - declarative OpenNebula VM management",
	Long: `onesync converges OpenNebula virtual machines towards a declared state.

A YAML specification names a VM and its target state (present, absent,
started, stopped, suspended, resumed, undeployed); onesync looks the VM up
over the XML-RPC API, computes the minimal action sequence and applies it.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

var (
	applyTimeout time.Duration
	outputFormat string

	connEndpoint string
	connUser     string
	connPassword string
)

func init() {
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 5*time.Minute, "deadline for the whole reconciliation")
	applyCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")

	infoCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
	for _, cmd := range []*cobra.Command{infoCmd, testConnCmd} {
		cmd.Flags().StringVar(&connEndpoint, "endpoint", "", "XML-RPC endpoint URL (default $ONE_XMLRPC)")
		cmd.Flags().StringVar(&connUser, "user", "", "frontend user (default $ONE_AUTH_USER)")
		cmd.Flags().StringVar(&connPassword, "password", "", "frontend password (default $ONE_AUTH_PASS)")
	}

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(testConnCmd)
}

var applyCmd = &cobra.Command{
	Use:   "apply <spec.yaml>",
	Short: "Reconcile a VM towards its declared state",
	Long: `Run one reconciliation from a YAML specification file.

The spec declares the VM name, its resources (CPU, memory, NICs, disks)
and the target lifecycle state. onesync creates the VM if needed, attaches
missing disks and applies the minimal lifecycle transitions.

The exit code is zero both when the VM already satisfied the spec and when
it was changed; the output field "changed" tells the two apart. Concurrent
applies of the same VM name must be serialized by the caller.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		spec, err := config.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(outputFormat)})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()

		result, err := reconcile.Reconcile(ctx, spec)
		if err != nil {
			// The partial result tells the caller which actions were
			// already applied before the failure.
			if result != nil && len(result.Actions) > 0 {
				fmt.Fprintf(os.Stderr, "Applied before failure: %v\n", result.Actions)
			}
			return err
		}

		text, err := formatter.FormatResult(result)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <vm-name>",
	Short: "Show the current state of a VM",
	Long: `Fetch and display the current record of a VM by name.

This never changes anything on the frontend. Fails when the VM does
not exist.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(outputFormat)})
		if err != nil {
			return err
		}

		endpoint, user, password := connFromFlags()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		rec, err := reconcile.Retrieve(ctx, endpoint, user, password, args[0])
		if err != nil {
			return err
		}

		text, err := formatter.FormatVM(rec)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the frontend connection",
	Long:  `Test connectivity to the OpenNebula frontend and display its version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Testing OpenNebula connection...")

		endpoint, user, password := connFromFlags()

		client, err := one.Connect(endpoint, user, password)
		if err != nil {
			return fmt.Errorf("failed to set up OpenNebula client: %w", err)
		}

		oneVersion, err := client.Ping()
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		fmt.Printf("✓ Connected to %s\n", endpoint)
		fmt.Printf("✓ OpenNebula version: %s\n", oneVersion)
		return nil
	},
}

// connFromFlags resolves connection settings from flags with environment
// fallbacks, matching the spec file behavior.
func connFromFlags() (endpoint, user, password string) {
	endpoint = connEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("ONE_XMLRPC")
	}
	user = connUser
	if user == "" {
		user = os.Getenv("ONE_AUTH_USER")
	}
	password = connPassword
	if password == "" {
		password = os.Getenv("ONE_AUTH_PASS")
	}
	return endpoint, user, password
}
