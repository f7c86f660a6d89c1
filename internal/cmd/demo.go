package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/chordflow/encore/internal/arbiter"
	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/config"
	"github.com/chordflow/encore/internal/logging"
	"github.com/chordflow/encore/internal/provider"
	"github.com/chordflow/encore/internal/registry"
	"github.com/chordflow/encore/internal/skill"
	"github.com/chordflow/encore/internal/status"
	"github.com/chordflow/encore/internal/timer"
	"github.com/chordflow/encore/internal/tui"
	"github.com/chordflow/encore/internal/vocab"
)

var demoCmd = &cobra.Command{
	Use:   "demo [phrase]",
	Short: "Run a scripted resolution round",
	Long: `Run one play request against the providers configured under the
"providers" config key and report the outcome.

Examples:
  # Resolve "jazz" against the configured providers
  encore demo jazz

  # Watch the round in the now-playing panel
  encore demo jazz --tui

  # Feed a raw utterance instead of an extracted phrase
  encore demo --utterance "could you play some smooth jazz"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDemo,
}

var (
	demoUtterance string
	demoTUI       bool
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVarP(&demoUtterance, "utterance", "u", "", "raw utterance to extract the phrase from")
	demoCmd.Flags().BoolVar(&demoTUI, "tui", false, "show the now-playing panel")
}

// stdoutSpeaker voices dialogs by printing them, standing in for TTS.
type stdoutSpeaker struct{}

func (stdoutSpeaker) SpeakDialog(name string, data map[string]string) {
	switch name {
	case "one_moment":
		fmt.Println("(spoken) one moment...")
	case "cant.play":
		fmt.Printf("(spoken) I can't play %s\n", data["phrase"])
	default:
		fmt.Printf("(spoken) %s\n", name)
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	phrase := ""
	if len(args) > 0 {
		phrase = args[0]
	}
	if phrase == "" && demoUtterance == "" {
		return fmt.Errorf("a phrase argument or --utterance is required")
	}

	log, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	b := bus.New()
	sched := timer.NewScheduler()
	defer sched.Stop()

	arb, err := arbiter.New(arbiter.Config{
		Bus:       b,
		Scheduler: sched,
		Registry:  registry.New(),
		Logger:    log,
	},
		arbiter.WithBaseTimeout(cfg.Arbiter.BaseTimeout()),
		arbiter.WithExtensionTimeout(cfg.Arbiter.ExtensionTimeout()),
		arbiter.WithSettleTimeout(cfg.Arbiter.SettleTimeout()),
		arbiter.WithSpeaker(stdoutSpeaker{}),
	)
	if err != nil {
		return err
	}

	matcher := vocab.New(cfg.Vocab.SkillDir, cfg.Vocab.FrameworkDir,
		vocab.WithDefaultLang(cfg.Skill.Lang),
		vocab.WithLogger(log),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Vocab.Watch {
		go func() { _ = matcher.Watch(ctx) }()
	}

	tracker := status.NewTracker(b, log)

	sk, err := skill.New(skill.Config{
		Bus:     b,
		Arbiter: arb,
		Status:  tracker,
		Vocab:   matcher,
		Logger:  log,
	},
		skill.WithSpeaker(stdoutSpeaker{}),
		skill.WithHesitation(cfg.Skill.Hesitation),
		skill.WithPlayTrigger(cfg.Skill.PlayTrigger),
		skill.WithLang(cfg.Skill.Lang),
	)
	if err != nil {
		return err
	}
	sk.Start()
	defer sk.Stop()

	providers := startProviders(cfg, b, log)
	defer stopProviders(providers)

	if demoTUI {
		return runDemoTUI(b, demoUtterance, phrase)
	}
	return runDemoPlain(ctx, cfg, b, demoUtterance, phrase)
}

func startProviders(cfg *config.Config, b *bus.Bus, log *logging.Logger) []*provider.Scripted {
	var providers []*provider.Scripted
	for _, spec := range cfg.Providers {
		p := provider.NewScripted(provider.Spec{
			ID:         spec.ID,
			Confidence: spec.Confidence,
			BidDelay:   spec.BidDelay(),
			Searching:  spec.Searching,
			SearchTime: spec.SearchTime(),
			OwnSurface: spec.OwnSurface,
			Track:      spec.Track,
			Artist:     spec.Artist,
			Album:      spec.Album,
		}, b, log)
		p.Start()
		providers = append(providers, p)
	}
	return providers
}

func stopProviders(providers []*provider.Scripted) {
	for _, p := range providers {
		p.Stop()
	}
}

// runDemoPlain runs one round and prints the outcome.
func runDemoPlain(ctx context.Context, cfg *config.Config, b *bus.Bus, utterance, phrase string) error {
	done := make(chan string, 1)
	b.Subscribe("play.start", func(e bus.Event) {
		if start, ok := e.(bus.PlayStartEvent); ok {
			done <- fmt.Sprintf("playing %q via %s", start.Phrase, start.Provider)
		}
	})
	b.Subscribe("play.no_match", func(e bus.Event) {
		if nm, ok := e.(bus.NoMatchEvent); ok {
			done <- fmt.Sprintf("no provider can play %q", nm.Phrase)
		}
	})

	b.Publish(bus.NewPlayRequestEvent(utterance, phrase, true))

	// The window can extend well past the base timeout while providers
	// search; cap the wait generously rather than tracking extensions.
	limit := cfg.Arbiter.ExtensionTimeout()*2 + 5*time.Second

	select {
	case outcome := <-done:
		fmt.Println(outcome)
	case <-time.After(limit):
		return fmt.Errorf("round did not resolve within %s", limit)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// runDemoTUI shows the round in the now-playing panel.
func runDemoTUI(b *bus.Bus, utterance, phrase string) error {
	bridge := tui.NewBridge(b)
	defer bridge.Close()

	program := tea.NewProgram(tui.NewModel(bridge))

	go func() {
		// Give the program a moment to start before the round begins.
		time.Sleep(100 * time.Millisecond)
		b.Publish(bus.NewPlayRequestEvent(utterance, phrase, true))
	}()

	_, err := program.Run()
	return err
}
