package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/agents"
	"github.com/courseforge/courseforge/internal/artifact"
	"github.com/courseforge/courseforge/internal/assemble"
	"github.com/courseforge/courseforge/internal/bibliography"
	"github.com/courseforge/courseforge/internal/config"
	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/links"
	"github.com/courseforge/courseforge/internal/logbook"
	"github.com/courseforge/courseforge/internal/logging"
	"github.com/courseforge/courseforge/internal/revision"
	"github.com/courseforge/courseforge/internal/store"
	"github.com/courseforge/courseforge/internal/tui"
	"github.com/courseforge/courseforge/internal/websearch"
)

// journalTailLines caps how much of the journey log the post-run audit
// summary echoes when sections missed full approval.
const journalTailLines = 10

func newRunCommand() *cobra.Command {
	var (
		week   int
		only   []string
		dryRun bool
		noTUI  bool
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one week of course content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeek(cmd.Context(), week, only, dryRun, noTUI)
		},
	}
	runCmd.Flags().IntVarP(&week, "week", "w", 0, "week number to generate")
	runCmd.Flags().StringSliceVar(&only, "sections", nil, "limit the run to these section ids")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate inputs and show the plan without calling any model")
	runCmd.Flags().BoolVar(&noTUI, "no-tui", false, "plain log output instead of the progress board")
	_ = runCmd.MarkFlagRequired("week")
	return runCmd
}

func runWeek(ctx context.Context, week int, only []string, dryRun, noTUI bool) error {
	cfg, err := config.Load(flagProjectDir)
	if err != nil {
		return err
	}
	if err := cfg.InitWorkDir(); err != nil {
		return err
	}
	log, err := logging.New(cfg.WorkDirPath(), flagVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	specs, err := course.LoadPlan(cfg.SectionsPath)
	if err != nil {
		return err
	}
	specs, err = course.FilterPlan(specs, only)
	if err != nil {
		return err
	}
	guidelines, err := course.ReadTextInput(cfg.GuidelinesPath, "writing guidelines")
	if err != nil {
		return err
	}
	rawBibliography, err := course.ReadTextInput(cfg.BibliographyPath, "bibliography")
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("week %d: %d sections\n", week, len(specs))
		for _, spec := range specs {
			fmt.Printf("  %d. %s (%s)\n", spec.Ordinal, spec.Title, spec.ID)
		}
		fmt.Printf("bibliography entries: %d\n", len(bibliography.ParseEntries(rawBibliography)))
		return nil
	}

	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return err
	}
	journal.RunStarted(week, len(specs))

	checker := links.NewChecker(cfg.Links, log)
	filter := bibliography.NewFilter(checker, log)
	bibText, verified, err := filter.FilterAndFormat(ctx, bibliography.ParseEntries(rawBibliography))
	if err != nil {
		if !errors.Is(err, bibliography.ErrVerificationUnavailable) {
			return err
		}
		// Fail closed but keep going: the run proceeds with no verified
		// bibliography rather than halting on a network blip.
		journal.VerificationUnavailable()
	}
	log.Info("bibliography prepared", zap.Int("verified_entries", len(verified)))

	client, err := agents.NewOpenAIClient(cfg.LLM)
	if err != nil {
		return err
	}
	writer := agents.NewWriter(client, cfg.LLM.WriterModel, guidelines, log)
	editor := agents.NewEditorReviewer(client, cfg.LLM.EditorModel, log)
	student := agents.NewStudentReviewer(client, cfg.LLM.StudentModel, log)

	runStore, err := store.Open(filepath.Join(cfg.StateDir(), "runs.db"))
	if err != nil {
		return err
	}
	defer func() { _ = runStore.Close() }()
	runID, err := runStore.BeginRun(ctx, week)
	if err != nil {
		return err
	}
	log.Info("run registered", zap.String("run_id", runID), zap.Int("week", week))

	opts := []revision.Option{
		revision.WithLogger(log),
		revision.WithJournal(journal),
		revision.WithRecorder(runStore),
	}
	if cfg.Search.TavilyAPIKey != "" {
		provider := websearch.NewTavilyClient(cfg.Search.TavilyAPIKey)
		opts = append(opts, revision.WithResources(websearch.NewSectionCache(provider, cfg.Search, log)))
	} else {
		log.Warn("no search api key configured, drafting without web resources")
	}

	var events chan revision.Event
	if !noTUI {
		events = make(chan revision.Event, 16)
		opts = append(opts, revision.WithEvents(func(e revision.Event) {
			// Never let a stalled display block the run.
			select {
			case events <- e:
			default:
			}
		}))
	}
	orch := revision.NewOrchestrator(writer, editor, student, opts...)

	results, runErr := runWithProgress(ctx, orch, specs, bibText, week, events, noTUI)
	if runErr != nil {
		journal.RunFailed(runErr)
		_ = runStore.FinishRun(ctx, "failed")
		return runErr
	}

	sectionStore := artifact.NewStore(cfg.SectionsDir())
	for _, res := range results {
		if _, err := sectionStore.WriteSection(res, week); err != nil {
			_ = runStore.FinishRun(ctx, "failed")
			return err
		}
	}

	doc, err := assemble.Week(week, results)
	if err != nil {
		_ = runStore.FinishRun(ctx, "failed")
		return err
	}
	outPath, err := assemble.WriteWeek(cfg.OutputDir(), week, doc)
	if err != nil {
		_ = runStore.FinishRun(ctx, "failed")
		return err
	}
	if err := runStore.FinishRun(ctx, "completed"); err != nil {
		return err
	}
	totalWords := 0
	for _, res := range results {
		totalWords += res.Draft.WordCount
	}
	journal.RunCompleted(outPath, totalWords)

	fmt.Printf("week %d written to %s (%d sections, %d words)\n", week, outPath, len(results), totalWords)
	flagged, err := runStore.FlaggedSections(ctx)
	if err != nil {
		return err
	}
	if len(flagged) > 0 {
		for _, f := range flagged {
			fmt.Fprintf(os.Stderr, "review needed: %s (%s)\n", f.Title, f.Outcome)
		}
		fmt.Fprintf(os.Stderr, "journey (last %d entries, full log at %s):\n", journalTailLines, journal.Path())
		for _, line := range journal.Tail(journalTailLines) {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}
	return nil
}

// runWithProgress executes the orchestrator, either headless or behind the
// progress board.
func runWithProgress(ctx context.Context, orch *revision.Orchestrator, specs []course.SectionSpec, bibText string, week int, events chan revision.Event, noTUI bool) ([]revision.SectionResult, error) {
	if noTUI {
		return orch.Run(ctx, specs, bibText)
	}

	var (
		results []revision.SectionResult
		runErr  error
	)
	done := make(chan struct{})
	program := tea.NewProgram(tui.New(week, specs, events))
	go func() {
		defer close(done)
		results, runErr = orch.Run(ctx, specs, bibText)
		program.Send(tui.DoneMsg{Err: runErr})
		close(events)
	}()
	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress board: %w", err)
	}
	select {
	case <-done:
		return results, runErr
	default:
		// The board was quit while sections were still in flight.
		return nil, fmt.Errorf("run aborted before completion")
	}
}
