package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"redarch/internal/app"
	"redarch/internal/archive"
	"redarch/internal/config"
	"redarch/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Import", "Search").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "redarch",
	Short: "Forum archive ingestion and query tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		fmt.Printf("Database password for %s@%s (empty for none): ", cfg.Database.User, cfg.Database.Host)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		cfg.Database.Password = string(password)

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Dump Dir: %s\n", cfg.Source.Dir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		fmt.Printf("Source:     %s\n", cfg.Source.Type)
		if cfg.Source.Type == "s3" {
			fmt.Printf("S3 Bucket:  %s/%s\n", cfg.Source.S3Bucket, cfg.Source.S3Prefix)
		} else {
			fmt.Printf("Dump Dir:   %s\n", cfg.Source.Dir)
		}
		fmt.Printf("Export Dir: %s\n", cfg.Export.OutputDir)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		if err := app.MigrateDB(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Println("Database schema is up to date.")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import forum dump files into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceDir, _ := cmd.Flags().GetString("source")
		platform, _ := cmd.Flags().GetString("platform")
		forceRebuild, _ := cmd.Flags().GetBool("force-rebuild")

		a, err := newApp(cmd, "Import")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, skipped, err := a.Import(cmd.Context(), sourceDir, archive.Platform(platform), forceRebuild)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Print(stats.Summary())
		if len(skipped) > 0 {
			fmt.Printf("unrecognized files: %d\n", len(skipped))
			for _, path := range skipped {
				fmt.Printf("  %s\n", path)
			}
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archive artifacts",
}

var exportUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Render one JSON artifact per user",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd, "ExportUsers")
		if err != nil {
			return err
		}
		defer a.Close()

		rendered, err := a.ExportUsers(cmd.Context(), refresh)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %d user(s)\n", rendered)
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Full-text search over posts and comments ('*' matches everything)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		community, _ := cmd.Flags().GetString("community")
		author, _ := cmd.Flags().GetString("author")
		resultType, _ := cmd.Flags().GetString("type")
		minScore, _ := cmd.Flags().GetInt64("min-score")
		startDate, _ := cmd.Flags().GetInt64("after")
		endDate, _ := cmd.Flags().GetInt64("before")
		orderBy, _ := cmd.Flags().GetString("order")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp(cmd, "Search")
		if err != nil {
			return err
		}
		defer a.Close()

		results, total, err := a.Search(cmd.Context(), archive.SearchQuery{
			QueryText:  args[0],
			Community:  community,
			Author:     author,
			ResultType: resultType,
			MinScore:   minScore,
			StartDate:  startDate,
			EndDate:    endDate,
			OrderBy:    orderBy,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		fmt.Printf("%d result(s), showing %d:\n\n", total, len(results))
		for _, r := range results {
			title := r.Title
			if r.ResultType == "comment" {
				title = "re: " + r.ParentTitle
			}
			fmt.Printf("[%s] %s  %s/%s by %s  score:%d\n", r.ResultType, r.ID, r.Platform, r.Community, r.Author, r.Score)
			fmt.Printf("  %s\n", title)
			if r.Headline != "" {
				fmt.Printf("  %s\n", r.Headline)
			}
			fmt.Println()
		}
		return nil
	},
}

// posts command
var postsCmd = &cobra.Command{
	Use:   "posts COMMUNITY",
	Short: "List a community's posts one page at a time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sortBy, _ := cmd.Flags().GetString("sort")
		cursor, _ := cmd.Flags().GetString("cursor")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Posts")
		if err != nil {
			return err
		}
		defer a.Close()

		posts, next, err := a.ListPosts(cmd.Context(), args[0], archive.PostSort(sortBy), cursor, limit)
		if err != nil {
			return fmt.Errorf("listing posts: %w", err)
		}

		if len(posts) == 0 {
			fmt.Println("No posts.")
			return nil
		}
		for _, p := range posts {
			fmt.Printf("%s  by %s  score:%d  comments:%d\n", p.ID, p.Author, p.Score, p.NumComments)
			fmt.Printf("  %s\n", p.Title)
		}
		if next != "" {
			fmt.Printf("\nNext page: --cursor %s\n", next)
		}
		return nil
	},
}

// thread command
var threadCmd = &cobra.Command{
	Use:   "thread POST_ID",
	Short: "Reconstruct a post's comment tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxDepth, _ := cmd.Flags().GetInt("max-depth")

		a, err := newApp(cmd, "Thread")
		if err != nil {
			return err
		}
		defer a.Close()

		post, tree, err := a.Thread(cmd.Context(), args[0], maxDepth)
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s/%s by %s  score:%d  comments:%d\n", post.ID, post.Platform, post.Community, post.Author, post.Score, post.NumComments)
		fmt.Printf("  %s\n\n", post.Title)
		printTree(tree)
		return nil
	},
}

// printTree renders comment nodes with two spaces of indent per depth level.
func printTree(nodes []*model.CommentNode) {
	for _, node := range nodes {
		indent := strings.Repeat("  ", node.Depth)
		body := node.Comment.Body
		if len(body) > 120 {
			body = body[:120] + "..."
		}
		fmt.Printf("%s%s (%d) %s\n", indent, node.Comment.Author, node.Comment.Score, body)
		printTree(node.Children)
	}
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Posts:    %d\n", stats.Posts)
		fmt.Printf("Comments: %d\n", stats.Comments)
		fmt.Printf("Users:    %d\n", stats.Users)
		fmt.Printf("DB size:  %.1f MiB\n", float64(stats.DatabaseSize)/(1<<20))
		if len(stats.ByPlatform) > 0 {
			fmt.Println("\nRecords by platform:")
			for _, platform := range []string{"reddit", "voat", "ruqqus"} {
				if n, ok := stats.ByPlatform[platform]; ok {
					fmt.Printf("  %-8s %d\n", platform, n)
				}
			}
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// import flags
	importCmd.Flags().String("source", "", "Import from this directory instead of the configured source")
	importCmd.Flags().String("platform", "", "Force a platform adapter (reddit, voat, ruqqus)")
	importCmd.Flags().Bool("force-rebuild", false, "Clear checkpoints and stored rows before importing")

	// export subcommands
	exportCmd.AddCommand(exportUsersCmd)
	exportUsersCmd.Flags().Bool("refresh", false, "Rebuild user aggregates before exporting")

	// search flags
	searchCmd.Flags().String("community", "", "Restrict to one community")
	searchCmd.Flags().String("author", "", "Restrict to one author")
	searchCmd.Flags().String("type", "", "Result type: post or comment")
	searchCmd.Flags().Int64("min-score", 0, "Minimum score")
	searchCmd.Flags().Int64("after", 0, "Earliest creation time (Unix seconds)")
	searchCmd.Flags().Int64("before", 0, "Latest creation time (Unix seconds)")
	searchCmd.Flags().String("order", "rank", "Ordering: rank, score, or date")
	searchCmd.Flags().IntP("limit", "n", 25, "Maximum number of results")
	searchCmd.Flags().Int("offset", 0, "Result offset for paging")

	// posts flags
	postsCmd.Flags().String("sort", "new", "Ordering: new, top, or comments")
	postsCmd.Flags().String("cursor", "", "Page cursor from a previous listing")
	postsCmd.Flags().IntP("limit", "n", 25, "Maximum number of posts per page")

	// thread flags
	threadCmd.Flags().Int("max-depth", 0, "Limit comment tree depth (0 = unlimited)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(threadCmd)
	rootCmd.AddCommand(statsCmd)
}
