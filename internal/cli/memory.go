package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/memory"
)

var (
	memoryUser     string
	memoryCategory string
	memoryLimit    int
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect stored user memories",
	Long:  `Commands for listing and searching the facts the memory subsystem has captured.`,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's memory records",
	RunE:  runMemoryList,
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over a user's memories",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemorySearch,
}

func init() {
	memoryCmd.PersistentFlags().StringVarP(&memoryUser, "user", "u", "", "user id (required)")
	memoryListCmd.Flags().StringVarP(&memoryCategory, "category", "c", "", "filter by category")
	memorySearchCmd.Flags().IntVarP(&memoryLimit, "limit", "n", 0, "max results (default from config)")

	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memorySearchCmd)
}

func openMemoryStore() (*config.Config, memory.Store, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := buildMemoryStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	if memoryUser == "" {
		return fmt.Errorf("--user is required")
	}

	_, st, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var categories []memory.Category
	if memoryCategory != "" {
		if !memory.ValidCategory(memoryCategory) {
			return fmt.Errorf("unknown category: %s", memoryCategory)
		}
		categories = []memory.Category{memory.Category(memoryCategory)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recs, err := st.List(ctx, memoryUser, categories)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No memories stored for this user.")
		return nil
	}

	for _, rec := range recs {
		fmt.Printf("%s  [%s]  %s\n", rec.CreatedAt.Format("2006-01-02"), rec.Category, rec.Fact)
	}
	return nil
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	if memoryUser == "" {
		return fmt.Errorf("--user is required")
	}

	_ = godotenv.Load()

	cfg, st, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer st.Close()

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vec, err := emb.Embed(ctx, args[0])
	if err != nil {
		return err
	}

	limit := memoryLimit
	if limit <= 0 {
		limit = cfg.Memory.TopK
	}

	results, err := st.Search(ctx, memoryUser, vec, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching memories.")
		return nil
	}

	for _, res := range results {
		fmt.Printf("%.4f  [%s]  %s\n", res.Distance, res.Record.Category, res.Record.Fact)
	}
	return nil
}
