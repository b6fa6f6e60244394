package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var configService string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and edit backend service configuration",
	Long: `Read and edit a backend service's configuration as a generic tree.
Nothing about the config's shape is hard-coded: values are addressed by
dotted paths ("llm.model", "chunks.0.size") whatever the service nests.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the configuration (or one value)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, err := a.client.GetConfig(cmd.Context(), configService)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		node := cfg
		if len(args) == 1 {
			n, ok := cfg.Get(args[0])
			if !ok {
				return fmt.Errorf("no value at path %q", args[0])
			}
			node = n
		}

		data, err := json.MarshalIndent(node, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set one configuration value and write it back",
	Long: `Set the value at a dotted path and post the whole config back to the
service. Values parse as bool, number or null when they look like one,
otherwise as a string. Run "ragchat reload" afterwards for the service
to pick the change up.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg, err := a.client.GetConfig(cmd.Context(), configService)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Set(args[0], internal.ScalarFromString(args[1])); err != nil {
			return err
		}
		if err := a.client.UpdateConfig(cmd.Context(), configService, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Restart a backend service with its current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.client.Reload(cmd.Context(), configService); err != nil {
			return fmt.Errorf("failed to reload service: %w", err)
		}
		fmt.Println("Service reloading")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(reloadCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.PersistentFlags().StringVar(&configService, "service", "rag", "Backend service name")
	reloadCmd.Flags().StringVar(&configService, "service", "rag", "Backend service name")
}
