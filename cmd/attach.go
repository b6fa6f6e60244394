package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <path>",
	Short: "Attach a document to the active session",
	Long: `Upload a document for the active session's lifetime. The document is
indexed only for this session; it never joins the permanent corpus. On a
brand-new chat the server issues the session id at this point.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cannot open file: %w", err)
		}
		defer f.Close()

		msg, err := a.ctrl.AttachFile(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		settings := internal.LoadSettings(a.store)
		printMessage(msg, settings.ShowSources)
		return nil
	},
}

var tempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Inspect a session's temporary attachments",
}

var tempListCmd = &cobra.Command{
	Use:   "list [session-id]",
	Short: "List temporary attachments",
	Long:  `List the documents the server holds for a session. Defaults to the active session.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sid := a.ctrl.Active()
		if len(args) == 1 {
			sid = args[0]
		}

		files, err := a.ctrl.Tracker().List(cmd.Context(), sid)
		if err != nil {
			return fmt.Errorf("failed to list temp files: %w", err)
		}
		if len(files) == 0 {
			fmt.Println(headerStyle.Render("No temporary attachments"))
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %s chunks, %s chars\n",
				fileStyle.Render(f.Filename),
				countStyle.Render(fmt.Sprintf("%d", f.ChunkCount)),
				countStyle.Render(fmt.Sprintf("%d", f.TotalChars)))
		}
		return nil
	},
}

var tempRmCmd = &cobra.Command{
	Use:   "rm <filename> [session-id]",
	Short: "Remove one temporary attachment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sid := a.ctrl.Active()
		if len(args) == 2 {
			sid = args[1]
		}
		if sid == "" {
			return fmt.Errorf("no active session; pass a session id")
		}

		if err := a.ctrl.Tracker().Remove(cmd.Context(), sid, args[0]); err != nil {
			return fmt.Errorf("failed to remove temp file: %w", err)
		}

		// The list is server-owned; re-read it after deletion.
		files, err := a.ctrl.Tracker().List(cmd.Context(), sid)
		if err != nil {
			internal.LogWarn("failed to refresh temp files: %v", err)
			files = nil
		}
		fmt.Printf("Removed %q (%d attachment(s) left)\n", args[0], len(files))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(tempCmd)
	tempCmd.AddCommand(tempListCmd)
	tempCmd.AddCommand(tempRmCmd)
}
