package cli

import (
	"fmt"
	"os"
	stdruntime "runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and dependencies",
	Long:  "Validate that configuration, credentials, and the database are properly set up.",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	fmt.Println("attune doctor — checking your environment")
	fmt.Println()
	allOK := true

	// 1. Go version
	fmt.Printf("  Go version:  %s", stdruntime.Version())
	fmt.Println(" ✓")

	// 2. OS/Arch
	fmt.Printf("  Platform:    %s/%s", stdruntime.GOOS, stdruntime.GOARCH)
	fmt.Println(" ✓")

	// 3. Provider API key
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		fmt.Printf("  Chat key:    set (***%s)", key[max(0, len(key)-4):])
		fmt.Println(" ✓")
	} else {
		fmt.Println("  Chat key:    NOT SET ✗")
		fmt.Println("    → Set ANTHROPIC_API_KEY in .env or the environment")
		allOK = false
	}

	// 4. Embedder API key
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		fmt.Printf("  Embed key:   set (***%s)", key[max(0, len(key)-4):])
		fmt.Println(" ✓")
	} else {
		fmt.Println("  Embed key:   NOT SET ✗")
		fmt.Println("    → Set OPENAI_API_KEY in .env or the environment")
		allOK = false
	}

	// 5. Configuration
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Println("  Config:      INVALID ✗")
		fmt.Printf("    → %s\n", err)
		allOK = false
	} else {
		fmt.Printf("  Config:      %s v%s", cfg.Name, cfg.Version)
		fmt.Println(" ✓")
	}

	// 6. Database
	if cfg != nil {
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			fmt.Printf("  Database:    FAILED (%s) ✗\n", err)
			allOK = false
		} else {
			fmt.Printf("  Database:    %s (%s)", cfg.Store.Driver, cfg.Store.Path)
			fmt.Println(" ✓")
			st.Close()
		}
	}

	// 7. Memory store
	if cfg != nil {
		mst, err := buildMemoryStore(cfg)
		if err != nil {
			fmt.Printf("  Memory:      FAILED (%s) ✗\n", err)
			allOK = false
		} else {
			fmt.Printf("  Memory:      %s (top_k=%d)", cfg.Memory.Driver, cfg.Memory.TopK)
			fmt.Println(" ✓")
			mst.Close()
		}
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See above for details.")
	}

	return nil
}
