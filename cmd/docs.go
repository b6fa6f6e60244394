package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the permanent document corpus",
	Long:  `List, preview, upload and delete the documents in the service's permanent index.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.client.Documents(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) == 0 {
			fmt.Println(headerStyle.Render("📄 No documents indexed"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("📄 %d document(s) indexed", len(docs))))
		fmt.Println()
		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Filename")+"\t"+titleStyle.Render("Chunks")+"\t"+titleStyle.Render("Chars")+"\t")
		_, _ = fmt.Fprintln(w, strings.Repeat("─", 60))
		for _, d := range docs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t\n",
				fileStyle.Render(d.Filename), countStyle.Render(fmt.Sprintf("%d", d.ChunkCount)), d.TotalChars)
		}
		return w.Flush()
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <filename>",
	Short: "Preview a document's indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// The active session id lets the server resolve temporary
		// attachments by the same name.
		content, err := a.client.DocumentContent(cmd.Context(), args[0], a.ctrl.Active())
		if err != nil {
			return fmt.Errorf("failed to fetch document: %w", err)
		}

		label := content.Filename
		if content.IsTemporary {
			label += " (temporary)"
		}
		fmt.Println(headerStyle.Render(label))
		fmt.Printf("%d chunk(s), %d chars\n\n", content.TotalChunks, content.TotalChars)
		for i, chunk := range content.Chunks {
			hash := chunk.Hash
			if len(hash) > 8 {
				hash = hash[:8]
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("Chunk #%d %s", i+1, hash)))
			fmt.Println(chunk.Text)
			fmt.Println()
		}
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Index a document into the permanent corpus",
	Args:  cobra.ExactArgs(1),
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

		if err := a.client.UploadFile(cmd.Context(), filepath.Base(args[0]), f); err != nil {
			return fmt.Errorf("failed to upload: %w", err)
		}
		fmt.Println("Indexed", filepath.Base(args[0]))
		return nil
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <filename>",
	Short: "Delete a document from the permanent corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.client.DeleteDocument(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

var docsClearIndexCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Remove every document from the permanent corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.client.ClearIndex(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
		fmt.Println("Index cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsRmCmd)
	docsCmd.AddCommand(docsClearIndexCmd)
}
