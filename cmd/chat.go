package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var chatSessionID string

// replayTail is how many trailing messages are replayed when auto-scroll
// is off.
const replayTail = 6

var (
	userMsgStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255"))

	systemMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start (or resume) an interactive conversation with the RAG service.

The transcript is replayed from local storage when resuming a session.
Inside the chat:
  /attach <path>   attach a document to this session
  /clear           clear this session's messages
  /new             start a fresh session
  /quit            leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		settings := internal.LoadSettings(a.store)

		sid := chatSessionID
		if sid == "" {
			sid = a.ctrl.Active()
		}
		if sid == "" {
			sid, err = a.ctrl.NewChat()
			if err != nil {
				return err
			}
			fmt.Println(systemMsgStyle.Render("Started a new chat."))
		}

		// Replay the stored transcript for the session being resumed. With
		// auto-scroll off only the tail is shown.
		msgs := a.ctrl.SwitchSession(sid)
		if !settings.AutoScroll && len(msgs) > replayTail {
			fmt.Println(systemMsgStyle.Render(fmt.Sprintf("(%d earlier messages hidden)", len(msgs)-replayTail)))
			msgs = msgs[len(msgs)-replayTail:]
		}
		for _, msg := range msgs {
			printMessage(msg, settings.ShowSources)
		}

		// Views of this session resynchronize when its log is cleared
		// elsewhere.
		a.ctrl.Log().Subscribe(func(cleared string) {
			if cleared == a.ctrl.Active() {
				fmt.Println(systemMsgStyle.Render("(messages cleared)"))
			}
		})

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Print(userMsgStyle.Render("you> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())

			switch {
			case line == "/quit" || line == "/exit":
				return nil
			case line == "/new":
				if _, err := a.ctrl.NewChat(); err != nil {
					return err
				}
				fmt.Println(systemMsgStyle.Render("Started a new chat."))
				continue
			case line == "/clear":
				if err := a.ctrl.ClearMessages(); err != nil {
					fmt.Println(errorMsgStyle.Render("Failed to clear: " + err.Error()))
				}
				continue
			case strings.HasPrefix(line, "/attach "):
				attachInChat(cmd, a, strings.TrimSpace(strings.TrimPrefix(line, "/attach ")), settings)
				continue
			case line == "":
				continue
			}

			msg, err := a.ctrl.SendQuestion(cmd.Context(), line)
			switch {
			case errors.Is(err, internal.ErrEmptyQuestion):
				continue
			case errors.Is(err, internal.ErrBusy):
				fmt.Println(systemMsgStyle.Render("Still waiting for the previous answer."))
				continue
			case err != nil:
				return err
			}
			printMessage(msg, settings.ShowSources)
		}
		return scanner.Err()
	},
}

func attachInChat(cmd *cobra.Command, a *app, path string, settings internal.Settings) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println(errorMsgStyle.Render("Cannot open file: " + err.Error()))
		return
	}
	defer f.Close()

	msg, err := a.ctrl.AttachFile(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		fmt.Println(errorMsgStyle.Render("Attach failed: " + err.Error()))
		return
	}
	printMessage(msg, settings.ShowSources)
}

// printMessage renders one transcript message with role-specific styling.
func printMessage(msg internal.Message, showSources bool) {
	switch msg.Role {
	case internal.RoleUser:
		fmt.Println(userMsgStyle.Render("you: ") + msg.Text)
	case internal.RoleAssistant:
		fmt.Println(assistantMsgStyle.Render(msg.Text))
		if showSources && len(msg.Sources) > 0 {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("  Sources (%d):", len(msg.Sources))))
			for i, src := range msg.Sources {
				fmt.Println(sourceStyle.Render(fmt.Sprintf("  #%d %s", i+1, internal.TruncatePreview(src))))
			}
		}
	case internal.RoleSystem:
		fmt.Println(systemMsgStyle.Render(msg.Text))
	case internal.RoleError:
		fmt.Println(errorMsgStyle.Render(msg.Text))
	default:
		fmt.Println(msg.Text)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Resume a specific session id")
}
