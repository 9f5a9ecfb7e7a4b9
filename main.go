// Package main provides the entry point for the kovo CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kovo-tts/kovo/internal/audio"
	"github.com/kovo-tts/kovo/internal/cache"
	"github.com/kovo-tts/kovo/internal/config"
	"github.com/kovo-tts/kovo/internal/pipeline"
	"github.com/kovo-tts/kovo/internal/synth"
	"github.com/kovo-tts/kovo/internal/voice"
)

// Exit codes by failure class.
const (
	exitOK        = 0
	exitGeneral   = 1
	exitConfig    = 2
	exitBlend     = 3
	exitSynthesis = 4
	exitExport    = 5
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	flagVoice        string
	flagSpeed        float64
	flagFormat       string
	flagServer       string
	flagNotification bool
	flagQuiet        bool
	flagBackground   bool
	flagNoPreload    bool
	flagDebug        bool
	flagExport       string
	flagListVoices   bool
	flagCacheStats   bool
	flagClearCache   string
	flagProbe        string

	rootCmd = &cobra.Command{
		Use:   "kovo [flags] [TEXT]",
		Short: "Speak text through a local synthesis engine, with caching",
		Long: paragraph(fmt.Sprintf(
			"\nSpeak text through a local %s engine. Synthesized audio is cached in three tiers so repeated phrases play instantly.",
			keyword("text-to-speech"),
		)),
		SilenceErrors:    true,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		RunE:             execute,
	}
)

// cliSource turns changed flags into a configuration source. Only
// flags the user actually passed participate in precedence.
func cliSource(cmd *cobra.Command) config.Source {
	var src config.Source
	if cmd.Flags().Changed("voice") {
		src.Voice = &flagVoice
	}
	if cmd.Flags().Changed("speed") {
		src.Speed = &flagSpeed
	}
	if cmd.Flags().Changed("format") {
		src.Format = &flagFormat
	}
	if cmd.Flags().Changed("server") {
		src.ServerURL = &flagServer
	}
	if cmd.Flags().Changed("notification") {
		src.Notification = &flagNotification
	}
	if cmd.Flags().Changed("quiet") {
		src.Quiet = &flagQuiet
	}
	if cmd.Flags().Changed("background") {
		src.Background = &flagBackground
	}
	if cmd.Flags().Changed("no-preload") {
		off := !flagNoPreload
		src.Preload = &off
	}
	if cmd.Flags().Changed("debug") {
		src.Debug = &flagDebug
	}
	return src
}

// resolveSettings merges all configuration sources in precedence
// order: defaults, user file, project file, environment, CLI flags.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	var sources []config.Source

	userPath := configFile
	if userPath == "" {
		p, err := config.UserConfigPath()
		if err != nil {
			log.Debug("no user config directory", "error", err)
		} else {
			userPath = p
		}
	}
	if userPath != "" {
		src, err := config.LoadFile(userPath)
		if err != nil {
			return config.Settings{}, err
		}
		sources = append(sources, src)
	}

	projectSrc, err := config.LoadFile(config.ProjectConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	sources = append(sources, projectSrc)

	envSrc, err := config.LoadEnv()
	if err != nil {
		return config.Settings{}, err
	}
	sources = append(sources, envSrc, cliSource(cmd))

	settings := config.Resolve(sources...)

	if settings.Cache.Dir == "" {
		dir, err := config.UserCacheDir()
		if err != nil {
			return config.Settings{}, fmt.Errorf("locating cache directory: %w", err)
		}
		settings.Cache.Dir = dir
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// textFromInput returns the text to speak: explicit args first, then
// piped stdin, with "-" forcing a stdin read.
func textFromInput(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		return readStdin()
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stat, err := os.Stdin.Stat(); err == nil {
		if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
			return readStdin()
		}
	}
	return "", nil
}

func readStdin() (string, error) {
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}

func newPipeline(settings config.Settings) (*pipeline.Pipeline, error) {
	cacheCfg := cache.Config{
		HotCapacity:   int64(settings.Cache.HotMB) * 1024 * 1024,
		MemoryEntries: settings.Cache.MemoryEntries,
		DiskCapacity:  int64(settings.Cache.DiskGB * 1024 * 1024 * 1024),
		DiskDir:       settings.Cache.Dir,
		Compression:   settings.Cache.Compression,
	}
	mgr, err := cache.NewManager(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	client, err := synth.NewClient(settings.ServerURL)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	return pipeline.New(settings, mgr, client, audio.NewLazyPlayer()), nil
}

func execute(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	if settings.Debug {
		log.SetLevel(log.DebugLevel)
	}

	// Probe needs no cache or engine.
	if cmd.Flags().Changed("probe") {
		return runProbe(settings, flagProbe)
	}

	// The export extension picks the format unless --format was explicit.
	if flagExport != "" && !cmd.Flags().Changed("format") {
		settings.Format = audio.FormatForPath(flagExport, settings.Format)
	}

	p, err := newPipeline(settings)
	if err != nil {
		return err
	}
	defer p.Close()

	switch {
	case flagListVoices:
		return runListVoices(cmd.Context(), p)
	case flagCacheStats:
		return runCacheStats(p)
	case cmd.Flags().Changed("clear-cache"):
		return runClearCache(p, flagClearCache)
	}

	text, err := textFromInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return cmd.Help()
	}

	if flagExport != "" {
		return runExport(cmd.Context(), p, settings, text)
	}
	return runSpeak(cmd.Context(), p, settings, text)
}

func runSpeak(ctx context.Context, p *pipeline.Pipeline, settings config.Settings, text string) error {
	echoTranscript(settings, text)

	result, err := p.ResolveAndPlay(ctx, text)
	if err != nil {
		return err
	}
	log.Debug("request served",
		"tier", result.Tier, "synthesized", result.Synthesized, "bytes", result.Bytes)

	// Warm the cache for next time. Notification callers cannot wait.
	if settings.Preload && !settings.Notification {
		pre := loadPreloadPhrases()
		p.Preload(ctx, pre)
	}

	if result.Done != nil {
		// Playback was scheduled in the background. The process still
		// has to outlive the audio stream.
		if err := <-result.Done; err != nil {
			return err
		}
	}
	return nil
}

func runExport(ctx context.Context, p *pipeline.Pipeline, settings config.Settings, text string) error {
	result, err := p.ResolveAndExport(ctx, text, flagExport)
	if err != nil {
		return err
	}
	if !settings.Quiet {
		fmt.Printf("Exported %s to %s\n", humanize.Bytes(uint64(result.Bytes)), flagExport)
	}
	return nil
}

func echoTranscript(settings config.Settings, text string) {
	if settings.Quiet || !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	fmt.Println(transcriptStyle.Render(cache.NormalizeText(text)))
}

func loadPreloadPhrases() config.Preload {
	path, err := config.UserConfigPath()
	if err != nil {
		return config.LoadPreload("")
	}
	return config.LoadPreload(filepath.Dir(path))
}

func runProbe(settings config.Settings, spec string) error {
	p := pipeline.New(settings, nil, nil, nil)
	result, err := p.Probe(spec)
	if err != nil {
		return err
	}

	fmt.Println(headingStyle.Render("Blend"))
	for _, c := range result.Components {
		fmt.Printf("  %s  %s\n", keyword(c.ID), fmt.Sprintf("%.4f", c.Weight))
	}
	fmt.Println()
	fmt.Printf("%s %s\n", labelStyle.Render("canonical:"), result.Canonical)
	fmt.Printf("%s %s\n", labelStyle.Render("engine spec:"), result.EngineSpec)
	fmt.Printf("%s %s\n", labelStyle.Render("format:"), result.Format)
	fmt.Printf("%s %.2f\n", labelStyle.Render("speed:"), result.Speed)
	fmt.Printf("%s %s\n", labelStyle.Render("server:"), result.ServerURL)
	return nil
}

func runListVoices(ctx context.Context, p *pipeline.Pipeline) error {
	voices, live := p.ListVoices(ctx)
	if !live {
		fmt.Println(mutedStyle.Render("engine unreachable, showing built-in voices"))
	}
	for _, v := range voices {
		fmt.Printf("  %s  %s\n", keyword(padRight(v.ID, 14)), v.Description)
	}
	return nil
}

func runCacheStats(p *pipeline.Pipeline) error {
	stats := p.CacheStats()

	fmt.Println(headingStyle.Render("Cache"))
	printTier("hot", stats.Hot)
	printTier("memory", stats.Memory)
	printTier("disk", stats.Disk)
	fmt.Println()
	fmt.Printf("%s %d entries, %s\n",
		labelStyle.Render("total:"), stats.TotalEntries(), humanize.Bytes(uint64(stats.TotalBytes())))
	fmt.Printf("%s hot %d, memory %d, disk %d, misses %d, promotions %d\n",
		labelStyle.Render("hits:"),
		stats.HotHits, stats.MemoryHits, stats.DiskHits, stats.Misses, stats.Promotions)
	return nil
}

func printTier(name string, s cache.Stats) {
	fmt.Printf("  %s %4d items, %10s of %s\n",
		labelStyle.Render(padRight(name, 7)),
		s.ItemCount,
		humanize.Bytes(uint64(s.Size)),
		humanize.Bytes(uint64(s.Capacity)))
}

func runClearCache(p *pipeline.Pipeline, tier string) error {
	if tier == "" {
		tier = "all"
	}
	if err := p.CacheClear(tier); err != nil {
		return err
	}
	fmt.Printf("Cleared %s cache\n", keyword(tier))
	return nil
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

// exitCode maps an error to the command's exit code contract.
func exitCode(err error) int {
	var (
		parseErr   *config.ParseError
		syntaxErr  *voice.SyntaxError
		exportErr  *audio.ExportError
		tooLongErr *pipeline.TextTooLongError
	)
	switch {
	case errors.As(err, &parseErr):
		return exitConfig
	case errors.As(err, &syntaxErr):
		return exitBlend
	case errors.As(err, &exportErr):
		return exitExport
	case synth.IsUnavailable(err):
		return exitSynthesis
	case errors.As(err, &tooLongErr), errors.Is(err, pipeline.ErrEmptyText):
		return exitGeneral
	default:
		return exitGeneral
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitGeneral)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		_ = closer()
		os.Exit(exitCode(err))
	}
	_ = closer()
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is the user config path)")
	rootCmd.Flags().StringVarP(&flagVoice, "voice", "v", "", "voice ID or weighted blend, e.g. af_bella(2)+af_sky(1)")
	rootCmd.Flags().Float64VarP(&flagSpeed, "speed", "x", 1.0, "speech speed multiplier (0.5 to 2.0)")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "f", "", "audio format: "+config.FormatList())
	rootCmd.Flags().StringVarP(&flagServer, "server", "s", "", "synthesis engine URL")
	rootCmd.Flags().BoolVar(&flagNotification, "notification", false, "notification mode: short deadline, never blocks the caller")
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress transcript output")
	rootCmd.Flags().BoolVarP(&flagBackground, "background", "b", false, "play without blocking on completion")
	rootCmd.Flags().BoolVar(&flagNoPreload, "no-preload", false, "skip warming the cache with common phrases")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "verbose logging")
	rootCmd.Flags().StringVarP(&flagExport, "export", "o", "", "write audio to FILE instead of playing")
	rootCmd.Flags().BoolVar(&flagListVoices, "list-voices", false, "list available voices")
	rootCmd.Flags().BoolVar(&flagCacheStats, "cache-stats", false, "show cache statistics")
	rootCmd.Flags().StringVar(&flagClearCache, "clear-cache", "", "clear a cache tier: hot, memory, disk, or all")
	rootCmd.Flags().Lookup("clear-cache").NoOptDefVal = "all"
	rootCmd.Flags().StringVar(&flagProbe, "probe", "", "parse a blend spec and show its canonical form")

	rootCmd.AddCommand(configCmd, manCmd)
}
