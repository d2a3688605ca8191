package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage registered query indexes",
	Long: `Register, rebuild and query indexes over a collection.

An index materialises the values at a set of dotted paths for every document
that matches its inclusions and none of its exclusions.`,
}

var indexRegisterCmd = &cobra.Command{
	Use:   "register [collection]",
	Short: "Register or refresh an index",
	Long: `Register an index over a collection. Registering an identical definition
again does nothing; a changed definition purges the old rows and reindexes.

Examples:
  dockit index register articles --name published \
    --include status=published --param status:status_idx --param views

  dockit index register articles --param author.name:author --defer`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexRegister,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [collection] [name]",
	Short: "Remove an index and its rows",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexRemove,
}

var indexListCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List the indexes of a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexList,
}

var indexReindexCmd = &cobra.Command{
	Use:   "reindex [collection] [name]",
	Short: "Rebuild an index from scratch",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexReindex,
}

var indexResumeCmd = &cobra.Command{
	Use:   "resume [collection] [name]",
	Short: "Continue an interrupted or deferred reindex",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexResume,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query [collection] [name]",
	Short: "Find documents through an index",
	Long: `Find documents matching every --where condition.

Conditions are param=value for equality, param:op:value with op one of
exact, gt, gte, lt, lte, or param:absent for documents missing the path.
Values are parsed as JSON when valid, e.g. views:gte:10 or author=null.`,
	Args: cobra.ExactArgs(2),
	RunE: runIndexQuery,
}

var indexValuesCmd = &cobra.Command{
	Use:   "values [collection] [name] [param]",
	Short: "List the distinct values of an index param",
	Args:  cobra.ExactArgs(3),
	RunE:  runIndexValues,
}

var (
	indexName     string
	indexIncludes []string
	indexExcludes []string
	indexParams   []string
	indexDefer    bool

	queryWhere []string
	queryJSON  bool
)

func init() {
	indexRegisterCmd.Flags().StringVar(&indexName, "name", "", "index name (default: the definition hash)")
	indexRegisterCmd.Flags().StringArrayVar(&indexIncludes, "include", nil, "inclusion filter path=value (repeatable)")
	indexRegisterCmd.Flags().StringArrayVar(&indexExcludes, "exclude", nil, "exclusion filter path=value (repeatable)")
	indexRegisterCmd.Flags().StringArrayVar(&indexParams, "param", nil, "indexed path[:key[:kind]] (repeatable)")
	indexRegisterCmd.Flags().BoolVar(&indexDefer, "defer", false, "record a checkpoint instead of reindexing now")

	indexQueryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "condition (repeatable)")
	indexQueryCmd.Flags().BoolVar(&queryJSON, "json", false, "output matching documents as JSON")

	indexCmd.AddCommand(indexRegisterCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexReindexCmd)
	indexCmd.AddCommand(indexResumeCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexValuesCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRegister(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	q, err := buildQueryIndex(args[0])
	if err != nil {
		return err
	}

	idx, outcome, err := indexService.Register(cmd.Context(), q, indexDefer)
	if err != nil {
		return fmt.Errorf("failed to register index: %w", err)
	}

	cmd.Printf("Index %s on %s %s (hash %s)\n", idx.Name, idx.Collection, outcome, idx.QueryHash)
	if indexDefer && outcome != domain.RegisterUnchanged {
		cmd.Printf("Reindex deferred. Run 'dockit index resume %s %s' to build it.\n", idx.Collection, idx.Name)
	}
	return nil
}

func buildQueryIndex(collection string) (domain.QueryIndex, error) {
	q := domain.QueryIndex{Name: indexName, Collection: collection}

	for _, s := range indexIncludes {
		f, err := parseFilter(s)
		if err != nil {
			return q, err
		}
		q.Inclusions = append(q.Inclusions, f)
	}
	for _, s := range indexExcludes {
		f, err := parseFilter(s)
		if err != nil {
			return q, err
		}
		q.Exclusions = append(q.Exclusions, f)
	}
	for _, s := range indexParams {
		q.Params = append(q.Params, parseParam(s))
	}
	return q, nil
}

// parseFilter parses path=value.
func parseFilter(s string) (domain.Filter, error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok || path == "" {
		return domain.Filter{}, fmt.Errorf("invalid filter %q: expected path=value", s)
	}
	return domain.Filter{Path: path, Value: parseValue(value)}, nil
}

// parseParam parses path[:key[:kind]]. The key defaults to the path.
func parseParam(s string) domain.IndexParam {
	parts := strings.SplitN(s, ":", 3)
	p := domain.IndexParam{Path: parts[0], Key: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		p.Key = parts[1]
	}
	if len(parts) > 2 {
		p.Kind = parts[2]
	}
	return p
}

// parseCondition parses param=value, param:op:value or param:absent.
func parseCondition(s string) (domain.Condition, error) {
	if param, value, ok := strings.Cut(s, "="); ok && !strings.Contains(param, ":") {
		return domain.Condition{Param: param, Op: domain.OpExact, Value: parseValue(value)}, nil
	}

	parts := strings.SplitN(s, ":", 3)
	switch {
	case len(parts) == 2 && domain.Operator(parts[1]) == domain.OpAbsent:
		return domain.Condition{Param: parts[0], Op: domain.OpAbsent}, nil
	case len(parts) == 3:
		return domain.Condition{Param: parts[0], Op: domain.Operator(parts[1]), Value: parseValue(parts[2])}, nil
	}
	return domain.Condition{}, fmt.Errorf("invalid condition %q", s)
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.Remove(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to remove index: %w", err)
	}

	cmd.Printf("Index %s removed from %s.\n", args[1], args[0])
	return nil
}

func runIndexList(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	collection := args[0]
	indexes, err := indexService.List(cmd.Context(), collection)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	if len(indexes) == 0 {
		cmd.Printf("No indexes registered on %s\n", collection)
		return nil
	}

	cmd.Printf("Indexes on %s:\n\n", collection)
	for i := range indexes {
		def := indexes[i].Definition
		cmd.Printf("  %s\n", indexes[i].Name)
		cmd.Printf("    Hash:       %s\n", indexes[i].QueryHash)
		for _, f := range def.Inclusions {
			cmd.Printf("    Include:    %s = %v\n", f.Path, f.Value)
		}
		for _, f := range def.Exclusions {
			cmd.Printf("    Exclude:    %s = %v\n", f.Path, f.Value)
		}
		for _, p := range def.Params {
			if p.Kind != "" {
				cmd.Printf("    Param:      %s <- %s (%s)\n", p.Key, p.Path, p.Kind)
			} else {
				cmd.Printf("    Param:      %s <- %s\n", p.Key, p.Path)
			}
		}
		cmd.Println()
	}
	return nil
}

func runIndexReindex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	state, err := indexService.Reindex(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to reindex: %w", err)
	}

	printReindexState(cmd, args[1], state)
	return nil
}

func runIndexResume(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	state, err := indexService.Resume(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to resume reindex: %w", err)
	}

	printReindexState(cmd, args[1], state)
	return nil
}

func printReindexState(cmd *cobra.Command, name string, state *domain.ReindexState) {
	if state.Done {
		cmd.Printf("Reindex of %s complete: %d documents\n", name, state.Processed)
		return
	}
	cmd.Printf("Reindex of %s stopped after %d documents (cursor %s)\n", name, state.Processed, state.Cursor)
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	conds := make([]domain.Condition, 0, len(queryWhere))
	for _, s := range queryWhere {
		c, err := parseCondition(s)
		if err != nil {
			return err
		}
		conds = append(conds, c)
	}

	docs, err := indexService.Query(cmd.Context(), args[0], args[1], conds)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		if docs == nil {
			docs = []domain.Document{}
		}
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No matching documents.")
		return nil
	}
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runIndexValues(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	values, err := indexService.UniqueValues(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("failed to list values: %w", err)
	}

	if len(values) == 0 {
		cmd.Printf("No values for %s\n", args[2])
		return nil
	}
	for _, v := range values {
		cmd.Printf("  %s (%s)\n", v.Text(), v.Kind)
	}
	return nil
}
