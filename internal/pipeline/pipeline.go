package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/kovo-tts/kovo/internal/audio"
	"github.com/kovo-tts/kovo/internal/cache"
	"github.com/kovo-tts/kovo/internal/config"
	"github.com/kovo-tts/kovo/internal/synth"
	"github.com/kovo-tts/kovo/internal/voice"
)

// ErrEmptyText is returned when a request carries no speakable text.
var ErrEmptyText = errors.New("no text to speak")

// TextTooLongError is returned when the input exceeds the engine's
// practical limit.
type TextTooLongError struct {
	Length int
	Limit  int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("text too long: %d characters (limit %d)", e.Length, e.Limit)
}

// Synthesizer is the engine boundary the pipeline talks to.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) ([]byte, error)
	Health(ctx context.Context) error
	Voices(ctx context.Context) ([]string, error)
}

// Result describes how one request was satisfied.
type Result struct {
	// Fingerprint is the cache key of the request.
	Fingerprint string
	// Tier is where the audio came from, TierNone when synthesized.
	Tier cache.Tier
	// Synthesized reports whether the engine was called.
	Synthesized bool
	// Bytes is the audio size.
	Bytes int
	// Done is non-nil for background playback. It receives the
	// playback error (nil on success) exactly once.
	Done <-chan error
}

// Pipeline resolves a request through the cache, falls back to the
// engine, and dispatches audio to the player or an export file.
type Pipeline struct {
	settings config.Settings
	cache    *cache.Manager
	client   Synthesizer
	player   audio.Player
}

// New wires a pipeline from its collaborators. The settings are final,
// already merged and validated by the caller.
func New(settings config.Settings, mgr *cache.Manager, client Synthesizer, player audio.Player) *Pipeline {
	return &Pipeline{
		settings: settings,
		cache:    mgr,
		client:   client,
		player:   player,
	}
}

// synthesisContext bounds the cache-lookup-plus-synthesis phase. In
// notification mode the caller cannot afford to block at all, so the
// same short deadline covers the whole request, playback included;
// otherwise the deadline is scoped to synthesis and playback runs for
// as long as the audio lasts.
func (p *Pipeline) synthesisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.settings.Notification {
		return context.WithTimeout(ctx, synth.NotificationTimeout)
	}
	return context.WithTimeout(ctx, synth.DefaultTimeout)
}

func (p *Pipeline) validateText(text string) (string, error) {
	normalized := cache.NormalizeText(text)
	if normalized == "" {
		return "", ErrEmptyText
	}
	// The limit is in characters, not bytes; multibyte text must not
	// be penalized.
	if n := utf8.RuneCountInString(normalized); n > config.MaxTextLength {
		return "", &TextTooLongError{Length: n, Limit: config.MaxTextLength}
	}
	return normalized, nil
}

// resolve takes a request from text to audio bytes, consulting the
// cache before the engine. The cache is only written after a
// successful synthesis.
func (p *Pipeline) resolve(ctx context.Context, text, format string) (string, []byte, *Result, error) {
	blend, err := voice.ParseBlend(p.settings.Voice)
	if err != nil {
		return "", nil, nil, err
	}

	fp := cache.Fingerprint(text, blend.Canonical(), format, p.settings.Speed, p.settings.ServerURL)

	if data, tier, ok := p.cache.Get(fp); ok {
		log.Debug("cache hit", "fingerprint", fp, "tier", tier, "bytes", len(data))
		return fp, data, &Result{Fingerprint: fp, Tier: tier, Bytes: len(data)}, nil
	}

	log.Debug("cache miss, synthesizing", "fingerprint", fp, "voice", blend.EngineSpec())
	start := time.Now()
	data, err := p.client.Synthesize(ctx, synth.Request{
		Text:   text,
		Voice:  blend.EngineSpec(),
		Speed:  p.settings.Speed,
		Format: format,
	})
	if err != nil {
		return "", nil, nil, err
	}
	log.Debug("synthesis complete", "bytes", len(data), "elapsed", time.Since(start))

	if err := p.cache.Put(fp, data); err != nil {
		// A cache write failure must not fail the request.
		log.Warn("caching synthesized audio failed", "fingerprint", fp, "error", err)
	}

	return fp, data, &Result{Fingerprint: fp, Tier: cache.TierNone, Synthesized: true, Bytes: len(data)}, nil
}

// ResolveAndPlay speaks text. In foreground mode it blocks until
// playback drains; in background mode it returns once playback is
// scheduled, and Result.Done reports the eventual outcome.
func (p *Pipeline) ResolveAndPlay(ctx context.Context, text string) (*Result, error) {
	normalized, err := p.validateText(text)
	if err != nil {
		return nil, err
	}

	format := p.settings.Format
	if format == "opus" || format == "flac" {
		return nil, fmt.Errorf("%w: %s is export-only", audio.ErrUnsupportedFormat, format)
	}

	// The synthesis deadline must not cut playback short: audio longer
	// than the timeout still plays to the end. Notification mode is the
	// exception, its deadline covers playback too.
	resolveCtx, cancel := p.synthesisContext(ctx)
	playCtx := ctx
	if p.settings.Notification {
		playCtx = resolveCtx
	}

	_, data, result, err := p.resolve(resolveCtx, normalized, format)
	if err != nil {
		cancel()
		return nil, err
	}

	if p.settings.Background {
		done := make(chan error, 1)
		result.Done = done
		go func() {
			defer cancel()
			playErr := p.player.Play(playCtx, data, format)
			if playErr != nil {
				log.Error("background playback failed", "error", playErr)
			}
			done <- playErr
		}()
		return result, nil
	}

	defer cancel()
	if err := p.player.Play(playCtx, data, format); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveAndExport resolves text like ResolveAndPlay but writes the
// audio to path instead of playing it.
func (p *Pipeline) ResolveAndExport(ctx context.Context, text, path string) (*Result, error) {
	normalized, err := p.validateText(text)
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.synthesisContext(ctx)
	defer cancel()

	_, data, result, err := p.resolve(ctx, normalized, p.settings.Format)
	if err != nil {
		return nil, err
	}

	if err := audio.Export(path, data); err != nil {
		return nil, err
	}
	log.Debug("exported audio", "path", path, "bytes", len(data))
	return result, nil
}

// CacheStats reports per-tier counters and totals.
func (p *Pipeline) CacheStats() cache.ManagerStats {
	return p.cache.Stats()
}

// CacheClear drops entries from the named tier, or all of them.
func (p *Pipeline) CacheClear(tier string) error {
	return p.cache.Clear(tier)
}

// PreloadStats summarizes a preload pass.
type PreloadStats struct {
	Cached   int
	Skipped  int
	Failed   int
	Pinned   int
	Duration time.Duration
}

// Preload synthesizes the configured phrases into the cache without
// playing them. Phrases already cached are skipped. Hot phrases are
// pinned so eviction never touches them.
func (p *Pipeline) Preload(ctx context.Context, pre config.Preload) PreloadStats {
	start := time.Now()
	var stats PreloadStats

	blend, err := voice.ParseBlend(p.settings.Voice)
	if err != nil {
		log.Warn("preload skipped, voice spec invalid", "voice", p.settings.Voice, "error", err)
		return stats
	}
	canonical := blend.Canonical()

	hot := make(map[string]bool, len(pre.HotPhrases))
	for _, phrase := range pre.HotPhrases {
		hot[cache.NormalizeText(phrase)] = true
	}

	seen := make(map[string]bool)
	phrases := append(append([]string{}, pre.Messages...), pre.HotPhrases...)
	for _, phrase := range phrases {
		text := cache.NormalizeText(phrase)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true

		fp := cache.Fingerprint(text, canonical, p.settings.Format, p.settings.Speed, p.settings.ServerURL)
		if hot[text] {
			p.cache.Pin(fp)
			stats.Pinned++
		}

		if p.cache.Contains(fp) {
			if hot[text] {
				// Pull the entry up so the pin takes effect.
				p.cache.Get(fp)
			}
			stats.Skipped++
			continue
		}

		data, err := p.client.Synthesize(ctx, synth.Request{
			Text:   text,
			Voice:  blend.EngineSpec(),
			Speed:  p.settings.Speed,
			Format: p.settings.Format,
		})
		if err != nil {
			stats.Failed++
			log.Debug("preload phrase failed", "text", text, "error", err)
			if synth.IsUnavailable(err) {
				// The engine is down, the rest will fail too.
				break
			}
			continue
		}

		if err := p.cache.Put(fp, data); err != nil {
			log.Warn("caching preload phrase failed", "fingerprint", fp, "error", err)
		}
		stats.Cached++
	}

	stats.Duration = time.Since(start)
	log.Debug("preload complete",
		"cached", stats.Cached, "skipped", stats.Skipped,
		"failed", stats.Failed, "elapsed", stats.Duration)
	return stats
}

// ProbeResult reports how a request would be resolved, without
// touching the cache or the engine. It carries the fingerprint inputs
// rather than a fingerprint, since the actual key depends on the text.
type ProbeResult struct {
	Canonical  string
	EngineSpec string
	Components []voice.Component
	Format     string
	Speed      float64
	ServerURL  string
}

// Probe parses a blend spec and reports its canonical form plus the
// fingerprint inputs an actual request would use. An empty spec probes
// the configured voice.
func (p *Pipeline) Probe(spec string) (*ProbeResult, error) {
	if spec == "" {
		spec = p.settings.Voice
	}
	blend, err := voice.ParseBlend(spec)
	if err != nil {
		return nil, err
	}

	return &ProbeResult{
		Canonical:  blend.Canonical(),
		EngineSpec: blend.EngineSpec(),
		Components: blend.Components,
		Format:     p.settings.Format,
		Speed:      p.settings.Speed,
		ServerURL:  p.settings.ServerURL,
	}, nil
}

// ListVoices returns the engine's advertised voices, falling back to
// the built-in table when the engine is unreachable.
func (p *Pipeline) ListVoices(ctx context.Context) ([]voice.Info, bool) {
	ids, err := p.client.Voices(ctx)
	if err != nil || len(ids) == 0 {
		log.Debug("voice listing unavailable, using built-in table", "error", err)
		return voice.Fallback(), false
	}
	return voice.DescribeAll(ids), true
}

// Close releases the pipeline's owned resources.
func (p *Pipeline) Close() error {
	playerErr := p.player.Close()
	cacheErr := p.cache.Close()
	if playerErr != nil {
		return playerErr
	}
	return cacheErr
}
