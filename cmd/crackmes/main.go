package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JohnDeved/crackmes-cli/internal/archive"
	"github.com/JohnDeved/crackmes-cli/internal/client"
	"github.com/JohnDeved/crackmes-cli/internal/config"
	"github.com/JohnDeved/crackmes-cli/internal/crackme"
	"github.com/JohnDeved/crackmes-cli/internal/picker"
	"github.com/JohnDeved/crackmes-cli/internal/store"
	"github.com/JohnDeved/crackmes-cli/internal/tui"
	"github.com/JohnDeved/crackmes-cli/internal/util"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crackmes",
		Short: "Browse, search and download crackmes from crackmes.one",
		Long: `crackmes - Browse the latest uploads or search crackmes.one, pick a crackme
interactively and download and unpack its archive.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to the log file")

	// Get command
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a crackme and download its archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	getCmd.Flags().StringP("output", "o", "", "Directory to unpack into")
	getCmd.Flags().Bool("info", false, "Only print the crackme, do not download")

	// Search command
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search crackmes.one and pick a result",
		Args:  cobra.NoArgs,
		RunE:  runSearch,
	}
	searchCmd.Flags().String("name", "", "Name contains")
	searchCmd.Flags().String("author", "", "Author contains")
	searchCmd.Flags().String("difficulty", client.FullRange.String(), "Difficulty range a..b")
	searchCmd.Flags().String("quality", client.FullRange.String(), "Quality range a..b")
	searchCmd.Flags().String("language", "", "Language, one of: "+languageNames())
	searchCmd.Flags().String("platform", "", "Platform, one of: "+platformNames())
	addListFlags(searchCmd)

	// Latest command
	latestCmd := &cobra.Command{
		Use:   "latest [page]",
		Short: "Browse the most recent uploads",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLatest,
	}
	addListFlags(latestCmd)

	// Cached command
	cachedCmd := &cobra.Command{
		Use:   "cached <query>",
		Short: "Search crackmes seen before in the local cache",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCached,
	}
	cachedCmd.Flags().Int("limit", 50, "Maximum number of results")
	addListFlags(cachedCmd)

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show local cache statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Output JSON")

	rootCmd.AddCommand(getCmd, searchCmd, latestCmd, cachedCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func languageNames() string {
	var names []string
	for _, l := range crackme.Languages() {
		names = append(names, strconv.Quote(l.String()))
	}
	return strings.Join(names, ", ")
}

func platformNames() string {
	var names []string
	for _, p := range crackme.Platforms() {
		names = append(names, strconv.Quote(p.String()))
	}
	return strings.Join(names, ", ")
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("plain", false, "Print results in plain text instead of launching the picker")
	cmd.Flags().Bool("json", false, "Print results as JSON instead of launching the picker")
	cmd.Flags().StringP("output", "o", "", "Directory to unpack the picked crackme into")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Level()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	// The picker owns the terminal, so logs go to a file.
	f, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	client *client.Client
	db     *store.DB
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a := &app{
		cfg:    cfg,
		client: client.New(cfg.BaseURL, cfg.RequestsPerSecond),
	}
	if cfg.CacheDescriptions {
		db, err := store.OpenDB(config.DBPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open cache DB: %v\n", err)
		} else {
			a.db = db
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) describer() picker.Describer {
	if a.db == nil {
		return a.client
	}
	return &store.CachedDescriber{DB: a.db, Next: a.client}
}

func (a *app) remember(records []*crackme.Record) {
	if a.db == nil || len(records) == 0 {
		return
	}
	if err := a.db.SaveRecords(records); err != nil {
		slog.Warn("caching records failed", "count", len(records), "err", err)
	}
}

func (a *app) outputDir(cmd *cobra.Command) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return a.cfg.DownloadDir
}

func (a *app) passwords() []string {
	if len(a.cfg.ArchivePasswords) > 0 {
		return a.cfg.ArchivePasswords
	}
	return archive.DefaultPasswords
}

func runGet(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if err := crackme.ValidateID(id); err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ov, err := a.client.Overview(ctx, id)
	if err != nil {
		return err
	}
	a.remember([]*crackme.Record{ov.Record})
	fmt.Print(ov.Record.String())

	if infoOnly, _ := cmd.Flags().GetBool("info"); infoOnly {
		return nil
	}
	return a.download(ctx, ov.Record, a.outputDir(cmd))
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := searchQueryFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	records, err := a.client.Search(ctx, q)
	if err != nil {
		return err
	}
	a.remember(records)
	return a.browse(ctx, cmd, records, "search")
}

func searchQueryFromFlags(cmd *cobra.Command) (client.SearchQuery, error) {
	q := client.NewSearchQuery()
	q.Name, _ = cmd.Flags().GetString("name")
	q.Author, _ = cmd.Flags().GetString("author")

	var err error
	difficulty, _ := cmd.Flags().GetString("difficulty")
	if q.Difficulty, err = client.ParseRange(difficulty); err != nil {
		return q, fmt.Errorf("--difficulty: %w", err)
	}
	quality, _ := cmd.Flags().GetString("quality")
	if q.Quality, err = client.ParseRange(quality); err != nil {
		return q, fmt.Errorf("--quality: %w", err)
	}
	if raw, _ := cmd.Flags().GetString("language"); raw != "" {
		lang, err := crackme.ParseLanguage(raw)
		if err != nil {
			return q, fmt.Errorf("--language: %w", err)
		}
		q.Language = &lang
	}
	if raw, _ := cmd.Flags().GetString("platform"); raw != "" {
		platform, err := crackme.ParsePlatform(raw)
		if err != nil {
			return q, fmt.Errorf("--platform: %w", err)
		}
		q.Platform = &platform
	}
	return q, nil
}

func runLatest(cmd *cobra.Command, args []string) error {
	page := uint64(1)
	if len(args) == 1 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid page %q: %w", args[0], err)
		}
		page = n
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	records, err := a.client.Latest(ctx, page)
	if err != nil {
		return err
	}
	a.remember(records)
	return a.browse(ctx, cmd, records, fmt.Sprintf("latest, page %d", max(page, 1)))
}

func runCached(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.db == nil {
		return errors.New("local cache is disabled or unavailable")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := a.db.Search(query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(records) == 0 {
		jsonMode, _ := cmd.Flags().GetBool("json")
		if !jsonMode {
			fmt.Println("No results found.")
			fmt.Println("Tip: records are cached as 'latest' and 'search' fetch them.")
			return nil
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return a.browse(ctx, cmd, records, "cached: "+query)
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := store.OpenDB(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			Crackmes  int    `json:"crackmes"`
			Described int    `json:"described"`
			Authors   int    `json:"authors"`
			Database  string `json:"database"`
		}{
			Crackmes:  stats.Crackmes,
			Described: stats.Described,
			Authors:   stats.Authors,
			Database:  config.DBPath(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Cache Statistics:\n")
	fmt.Printf("  Crackmes:  %d\n", stats.Crackmes)
	fmt.Printf("  Described: %d\n", stats.Described)
	fmt.Printf("  Authors:   %d\n", stats.Authors)
	fmt.Printf("  Database:  %s\n", config.DBPath())
	return nil
}

// browse prints records with --json/--plain or when not on a terminal, and
// otherwise runs the picker and downloads the pick.
func (a *app) browse(ctx context.Context, cmd *cobra.Command, records []*crackme.Record, title string) error {
	jsonMode, _ := cmd.Flags().GetBool("json")
	plainMode, _ := cmd.Flags().GetBool("plain")

	if jsonMode {
		out := make([]recordJSON, len(records))
		for i, r := range records {
			out[i] = toJSON(r)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if plainMode || !isInteractiveTerminal() {
		for _, r := range records {
			fmt.Printf("%s  %-30s  %-16s  %-16s  %-20s  %s/%s\n",
				r.ID,
				util.TruncateText(r.Name, 30),
				util.TruncateText(r.Author, 16),
				r.Language,
				r.Platform,
				crackme.FormatRating(r.Stats.Difficulty),
				crackme.FormatRating(r.Stats.Quality),
			)
		}
		fmt.Fprintf(os.Stderr, "\n%d crackmes.\n", len(records))
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No crackmes found.")
		return nil
	}

	picked, err := tui.Run(ctx, records, a.describer(), title)
	if err != nil {
		return err
	}
	if picked == nil {
		return nil
	}
	fmt.Print(picked.String())
	return a.download(ctx, picked, a.outputDir(cmd))
}

// download fetches a record's archive next to its target directory, unpacks
// it there and removes the archive.
func (a *app) download(ctx context.Context, r *crackme.Record, outDir string) error {
	ov, err := a.client.Overview(ctx, r.ID)
	if err != nil {
		return err
	}
	archiveURL := a.client.ArchiveURL(ov)

	dir := filepath.Join(outDir, archive.DirName(r))
	zipPath := dir + ".zip"

	fmt.Fprintf(os.Stderr, "Downloading: %s\n", archiveURL)
	fmt.Fprintf(os.Stderr, "To: %s\n", util.TruncatePath(dir, 60))

	err = archive.Download(ctx, a.client, archiveURL, zipPath, func(p archive.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r  %.1f%% (%s/%s)    ", p.Fraction()*100, util.FormatBytes(p.Done), util.FormatBytes(p.Total))
		} else {
			fmt.Fprintf(os.Stderr, "\r  %s    ", util.FormatBytes(p.Done))
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	files, err := archive.Extract(zipPath, dir, a.passwords())
	if err != nil {
		return fmt.Errorf("extracting %s: %w", zipPath, err)
	}
	if err := os.Remove(zipPath); err != nil {
		slog.Warn("removing archive failed", "path", zipPath, "err", err)
	}
	slog.Info("crackme unpacked", "id", r.ID, "dir", dir, "files", len(files))
	fmt.Fprintf(os.Stderr, "Unpacked %d file(s) into %s\n", len(files), dir)
	return nil
}

type recordJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Author      string           `json:"author"`
	Language    crackme.Language `json:"language"`
	Platform    crackme.Platform `json:"platform"`
	Date        string           `json:"date"`
	Quality     float32          `json:"quality"`
	Difficulty  float32          `json:"difficulty"`
	Solutions   uint64           `json:"solutions"`
	Comments    uint64           `json:"comments"`
	Description *string          `json:"description,omitempty"`
}

func toJSON(r *crackme.Record) recordJSON {
	out := recordJSON{
		ID:         r.ID,
		Name:       r.Name,
		Author:     r.Author,
		Language:   r.Language,
		Platform:   r.Platform,
		Date:       r.Date,
		Quality:    r.Stats.Quality,
		Difficulty: r.Stats.Difficulty,
		Solutions:  r.Solutions,
		Comments:   r.Comments,
	}
	if d, ok := r.Description(); ok {
		out.Description = &d
	}
	return out
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
