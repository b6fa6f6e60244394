package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the RAG service and local state",
	Long: `Check the health of ragchat by verifying:
  • The RAG service answers its liveness probe
  • The local state store opens
  • How many sessions are saved locally

This command is useful for debugging connectivity and storage issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("🔍 ragchat Health Check"))
		fmt.Println()

		a, err := newApp()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to open local state:"), err)
			os.Exit(1)
		}
		defer a.Close()
		fmt.Println(successStyle.Render("✅ Local state store opened"))
		fmt.Printf("   Backend: %s (%s)\n", a.cfg.StoreBackend, a.cfg.StoreDir)
		fmt.Println()

		sessions := a.ctrl.Registry().List()
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ %d session(s) saved locally", len(sessions))))
		fmt.Println()

		fmt.Println(infoStyle.Render("Probing " + a.cfg.BaseURL + " ..."))
		status, err := a.client.Health(cmd.Context())
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Service unreachable:"), err)
			os.Exit(1)
		}
		fmt.Println(successStyle.Render("✅ Service is up: " + status.Status))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
