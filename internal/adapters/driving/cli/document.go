package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long: `Store, view and edit documents. Paths are dotted, e.g. author.addresses.0.city.

Every write re-evaluates the registered indexes of the document's collection.`,
}

var documentPutCmd = &cobra.Command{
	Use:   "put [collection] [json]",
	Short: "Store a document",
	Long: `Store a document from a JSON object given as an argument, or read from --file
(use - for stdin). A new ID is generated unless --id is set.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDocumentPut,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [collection] [id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentGet,
}

var documentListCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List the documents of a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [collection] [id]",
	Short: "Delete a document and its index rows",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentDelete,
}

var documentDotCmd = &cobra.Command{
	Use:   "dot [collection] [id] [path]",
	Short: "Resolve a dotted path inside a document",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runDocumentDot,
}

var documentSetCmd = &cobra.Command{
	Use:   "set [collection] [id] [path] [value]",
	Short: "Write a value at a dotted path",
	Long: `Write a value at a dotted path and save the document. The value is parsed as
JSON when it is valid JSON and stored as a string otherwise.`,
	Args: cobra.ExactArgs(4),
	RunE: runDocumentSet,
}

var documentStageCmd = &cobra.Command{
	Use:   "stage [collection] [id]",
	Short: "Copy a document into the temporary collection for editing",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentStage,
}

var documentCommitCmd = &cobra.Command{
	Use:   "commit [temp-id] [collection] [target-id]",
	Short: "Write a staged document back into a collection",
	Long: `Write a staged document into a collection and remove the staged copy.
Without a target ID a new document is created.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDocumentCommit,
}

var (
	documentPutID   string
	documentPutFile string
)

func init() {
	documentPutCmd.Flags().StringVar(&documentPutID, "id", "", "document ID")
	documentPutCmd.Flags().StringVarP(&documentPutFile, "file", "f", "", "read the JSON object from a file (- for stdin)")

	documentCmd.AddCommand(documentPutCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentDotCmd)
	documentCmd.AddCommand(documentSetCmd)
	documentCmd.AddCommand(documentStageCmd)
	documentCmd.AddCommand(documentCommitCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentPut(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	raw, err := documentInput(cmd, args[1:])
	if err != nil {
		return err
	}
	data, err := domain.DecodeJSONObject(raw)
	if err != nil {
		return fmt.Errorf("invalid document data: %w", err)
	}

	doc := &domain.Document{ID: documentPutID, Collection: args[0], Data: data}
	if err := documentService.Save(cmd.Context(), doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	cmd.Printf("Saved %s/%s (version %d)\n", doc.Collection, doc.ID, doc.Version)
	return nil
}

// documentInput returns the JSON argument, or the contents of --file.
func documentInput(cmd *cobra.Command, args []string) ([]byte, error) {
	switch {
	case len(args) == 1 && documentPutFile != "":
		return nil, errors.New("give the document as an argument or with --file, not both")
	case len(args) == 1:
		return []byte(args[0]), nil
	case documentPutFile == "-":
		return io.ReadAll(cmd.InOrStdin())
	case documentPutFile != "":
		return os.ReadFile(documentPutFile)
	}
	return nil, errors.New("missing document data")
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s/%s\n\n", doc.Collection, doc.ID)
	cmd.Printf("  Version:  %d\n", doc.Version)
	if !doc.CreatedAt.IsZero() {
		cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Println()
	return printJSON(cmd, doc.Data)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	collection := args[0]
	docs, err := documentService.List(cmd.Context(), collection)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents in collection: %s\n", collection)
		return nil
	}

	cmd.Printf("Documents in %s:\n\n", collection)
	for i := range docs {
		cmd.Printf("  %s (version %d)\n", docs[i].ID, docs[i].Version)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Delete(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s/%s deleted.\n", args[0], args[1])
	return nil
}

func runDocumentDot(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	path := ""
	if len(args) == 3 {
		path = args[2]
	}

	value, err := documentService.DotNotation(cmd.Context(), args[0], args[1], path)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return printJSON(cmd, value)
}

func runDocumentSet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	value := parseValue(args[3])
	doc, err := documentService.SetValue(cmd.Context(), args[0], args[1], args[2], value)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", args[2], err)
	}

	cmd.Printf("Set %s on %s/%s (version %d)\n", args[2], doc.Collection, doc.ID, doc.Version)
	return nil
}

func runDocumentStage(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	temp, err := documentService.CopyToTemporary(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to stage document: %w", err)
	}

	cmd.Printf("Staged %s/%s as %s\n", args[0], args[1], temp.ID)
	return nil
}

func runDocumentCommit(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	target := ""
	if len(args) == 3 {
		target = args[2]
	}

	doc, err := documentService.CommitTemporary(cmd.Context(), args[0], args[1], target)
	if err != nil {
		return fmt.Errorf("failed to commit staged document: %w", err)
	}

	cmd.Printf("Committed %s to %s/%s (version %d)\n", args[0], doc.Collection, doc.ID, doc.Version)
	return nil
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	if !json.Valid([]byte(s)) {
		return s
	}
	v, err := domain.DecodeJSON([]byte(s))
	if err != nil {
		return s
	}
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
