package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAutocompleteCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "autocomplete [prefix]",
		Short: "Suggest items whose name starts with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			items, err := eng.Autocomplete(cmd.Context(), args[0], limitOr(limit, a.cfg.Search.AutocompleteLimit))
			if err != nil {
				return err
			}
			return a.printItems(cmd, items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Hybrid search over names and descriptions",
		Long: `Combines prefix matches on item names with a substring scan of the
catalog. Prefix matches come first and duplicates are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			items, err := eng.HybridSearch(cmd.Context(), args[0], limitOr(limit, a.cfg.Search.DefaultLimit))
			if err != nil {
				return err
			}
			return a.printItems(cmd, items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	return cmd
}

func newSubstringCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "substring [keyword]",
		Short: "Find items containing keyword in any text field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			items, err := eng.SubstringSearch(cmd.Context(), args[0], limitOr(limit, a.cfg.Search.SubstringLimit))
			if err != nil {
				return err
			}
			return a.printItems(cmd, items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	return cmd
}

func newPlatformCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "platform [platform] [keyword]",
		Short: "Search items on one platform",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := ""
			if len(args) == 2 {
				keyword = args[1]
			}
			eng, _, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			items, err := eng.PlatformSearch(cmd.Context(), args[0], keyword, limitOr(limit, a.cfg.Search.MaxResults))
			if err != nil {
				return err
			}
			return a.printItems(cmd, items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Build the prefix index and report its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stats, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd, stats)
			}
			cmd.Printf("items: %d\nnodes: %d\nbuild: %s\n", stats.Items, stats.Nodes, stats.Duration)
			return nil
		},
	}
}

// newIndexedCmd checks a full item name against the index. Prefixes of
// longer names do not count.
func newIndexedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "indexed [name]",
		Short: "Report whether an exact item name is in the prefix index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := a.index(cmd.Context())
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			found := manager.Current().Contains(name)
			if a.jsonOut {
				return printJSON(cmd, map[string]any{"name": name, "indexed": found})
			}
			if found {
				cmd.Printf("indexed: %s\n", name)
			} else {
				cmd.Printf("not indexed: %s\n", name)
			}
			return nil
		},
	}
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}
