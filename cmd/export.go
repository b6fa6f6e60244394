package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/rag-chat/internal"
	"github.com/iksnae/rag-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session transcript",
	Long: `Export one session's transcript (or every saved session) in the chosen
format. Supported formats: jsonl, md, yaml, json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		var sessions []internal.Session
		if len(args) == 1 {
			s, ok := a.ctrl.Registry().Get(args[0])
			if !ok {
				return fmt.Errorf("unknown session: %s", args[0])
			}
			sessions = []internal.Session{s}
		} else {
			sessions = a.ctrl.Registry().List()
		}
		if len(sessions) == 0 {
			fmt.Println(headerStyle.Render("Nothing to export"))
			return nil
		}

		if err := os.MkdirAll(exportOutput, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, s := range sessions {
			t := &internal.Transcript{
				Session:  s,
				Messages: a.ctrl.Log().Load(s.ID),
			}
			path := filepath.Join(exportOutput, fmt.Sprintf("session_%s.%s", s.ID, exporter.Extension()))
			f, err := os.Create(path)
			if err != nil {
				return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
			}
			if err := exporter.Export(t, f); err != nil {
				f.Close()
				return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
			}
			if err := f.Close(); err != nil {
				return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
			}
			fmt.Println("Wrote", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "exports", "Output directory")
}
