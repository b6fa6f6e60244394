package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer. The exchange is recorded in the
active session (or the one named with --session), exactly as it would be
in the interactive chat.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if askSessionID != "" {
			a.ctrl.SwitchSession(askSessionID)
		}

		question := strings.Join(args, " ")
		msg, err := a.ctrl.SendQuestion(cmd.Context(), question)
		if err != nil {
			return err
		}

		settings := internal.LoadSettings(a.store)
		printMessage(msg, settings.ShowSources)
		if msg.Role == internal.RoleError {
			fmt.Println(systemMsgStyle.Render("The exchange was recorded; you can retry."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askSessionID, "session", "", "Record the exchange in a specific session id")
}
