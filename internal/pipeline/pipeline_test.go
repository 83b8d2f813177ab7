package pipeline_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"pairmux/internal/config"
	"pairmux/internal/conflict"
	"pairmux/internal/deps"
	"pairmux/internal/history"
	"pairmux/internal/merge"
	"pairmux/internal/pipeline"
	"pairmux/internal/testsupport"
)

// writeShow builds a collection "Show A" with the given episode titles, one
// directory per episode.
func writeShow(t *testing.T, titles ...string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "downloads")
	testsupport.WriteCollection(t, root, "Show A")
	for i, title := range titles {
		testsupport.WriteEpisode(t, filepath.Join(root, "ep"+string(rune('1'+i))), title)
	}
	return root
}

func TestRunMissingBinaryStopsBeforeDiscovery(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMissingMuxer())
	store := testsupport.MustOpenHistory(t, cfg)
	root := writeShow(t, "Episode 1")

	report, err := pipeline.New(cfg, pipeline.WithHistory(store)).Run(context.Background(), root, "")
	if !errors.Is(err, deps.ErrBinaryUnavailable) {
		t.Fatalf("expected ErrBinaryUnavailable, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Paths.OutputDir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output directory to be created, stat err = %v", statErr)
	}
	if report == nil || report.Summary.Discovered != 0 || len(report.Outcomes) != 0 {
		t.Fatalf("expected nothing discovered or scheduled, got %+v", report)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (%v)", err, run)
	}
	if run.Status != history.StatusAborted || !strings.Contains(run.ErrorMessage, "unavailable") {
		t.Fatalf("expected aborted run with message, got %+v", run)
	}
}

func TestRunMissingProberStopsBeforeMerging(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithProbeOutputs("/nonexistent/ffprobe"))
	store := testsupport.MustOpenHistory(t, cfg)
	root := writeShow(t, "Episode 1", "Episode 2")

	report, err := pipeline.New(cfg, pipeline.WithHistory(store)).Run(context.Background(), root, "")
	if !errors.Is(err, deps.ErrBinaryUnavailable) {
		t.Fatalf("expected ErrBinaryUnavailable for ffprobe, got %v", err)
	}
	if !strings.Contains(err.Error(), "ensure output prober") {
		t.Fatalf("expected prober context in error, got %v", err)
	}
	if len(report.Outcomes) != 0 || report.Summary.Failed != 0 {
		t.Fatalf("expected nothing scheduled, got %+v", report)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Show-A", "Episode-1.mp4")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output written, stat err = %v", statErr)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (%v)", err, run)
	}
	if run.Status != history.StatusAborted {
		t.Fatalf("expected aborted run, got %+v", run)
	}
}

func TestRunMergesEveryEpisode(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub())
	cfg.Notifications.NtfyTopic = server.URL
	store := testsupport.MustOpenHistory(t, cfg)
	root := writeShow(t, "Episode 1", "Episode 2", "Episode fail")

	var progress []merge.Progress
	p := pipeline.New(cfg,
		pipeline.WithHistory(store),
		pipeline.WithProgress(func(pr merge.Progress) { progress = append(progress, pr) }),
	)
	report, err := p.Run(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := pipeline.Summary{Discovered: 3, Succeeded: 2, Failed: 1}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}
	if report.OK() {
		t.Fatal("expected report with a failure not to be OK")
	}
	outputDir := filepath.Join(cfg.Paths.OutputDir, "Show-A")
	if report.OutputDir != outputDir {
		t.Fatalf("output dir = %q, want %q", report.OutputDir, outputDir)
	}
	for _, name := range []string{"Episode-1.mp4", "Episode-2.mp4"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Fatalf("expected merged output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outputDir, pipeline.LockFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected run lock to be removed, stat err = %v", err)
	}

	failures := report.Failures()
	if len(failures) != 1 || failures[0].ExitCode == nil || *failures[0].ExitCode != 3 {
		t.Fatalf("expected one failure with exit code 3, got %+v", failures)
	}
	if len(progress) != 3 || progress[2].Completed != 3 || progress[2].Total != 3 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.StatusPartial || run.Succeeded != 2 || run.Failed != 1 || run.Collection != "Show A" {
		t.Fatalf("unexpected history row %+v", run)
	}
	outcomes, err := store.Outcomes(context.Background(), report.RunID)
	if err != nil || len(outcomes) != 3 {
		t.Fatalf("expected 3 recorded outcomes, got %d (%v)", len(outcomes), err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || !strings.HasPrefix(bodies[0], "Show A: 2 merged, 1 failed") {
		t.Fatalf("unexpected notifications %q", bodies)
	}
}

func TestRunSkipsConflictsByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithoutHistory())
	root := writeShow(t, "Episode 1", "Episode 2")
	existing := filepath.Join(cfg.Paths.OutputDir, "Show-A", "Episode-1.mp4")
	testsupport.WriteFile(t, existing, 10)

	report, err := pipeline.New(cfg).Run(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.SkippedConflicts != 1 || report.Summary.Succeeded != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].ExistingOutputSize != 10 {
		t.Fatalf("unexpected conflicts %+v", report.Conflicts)
	}
	if info, err := os.Stat(existing); err != nil || info.Size() != 10 {
		t.Fatalf("expected existing output untouched, got %v (%v)", info, err)
	}
}

func TestRunAppliesDeciderAnswers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithoutHistory())
	root := writeShow(t, "Episode 1", "Episode 2")
	outputDir := filepath.Join(cfg.Paths.OutputDir, "Show-A")
	testsupport.WriteFile(t, filepath.Join(outputDir, "Episode-1.mp4"), 10)
	testsupport.WriteFile(t, filepath.Join(outputDir, "Episode-2.mp4"), 10)

	var asked []conflict.Record
	decider := pipeline.DeciderFunc(func(_ context.Context, records []conflict.Record) ([]conflict.Decision, error) {
		asked = records
		return []conflict.Decision{conflict.Overwrite, conflict.Skip}, nil
	})
	report, err := pipeline.New(cfg, pipeline.WithDecider(decider)).Run(context.Background(), root, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(asked) != 2 || asked[0].CombinedSourceSize != 1024+256 {
		t.Fatalf("unexpected records passed to decider: %+v", asked)
	}
	if report.Summary.Succeeded != 1 || report.Summary.SkippedConflicts != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	content, err := os.ReadFile(filepath.Join(outputDir, "Episode-1.mp4"))
	if err != nil || string(content) != "merged" {
		t.Fatalf("expected overwritten output, got %q (%v)", content, err)
	}
	if info, _ := os.Stat(filepath.Join(outputDir, "Episode-2.mp4")); info == nil || info.Size() != 10 {
		t.Fatalf("expected skipped output untouched, got %v", info)
	}
}

func TestRunAbortsWhenDeciderFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithoutHistory())
	root := writeShow(t, "Episode 1")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, "Show-A", "Episode-1.mp4"), 10)

	boom := errors.New("prompt closed")
	decider := pipeline.DeciderFunc(func(context.Context, []conflict.Record) ([]conflict.Decision, error) {
		return nil, boom
	})
	report, err := pipeline.New(cfg, pipeline.WithDecider(decider)).Run(context.Background(), root, "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected decider error, got %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Fatalf("expected nothing scheduled, got %+v", report.Outcomes)
	}
}

func TestRunCancelledFromDeciderRecordsCancelledRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub())
	store := testsupport.MustOpenHistory(t, cfg)
	root := writeShow(t, "Episode 1", "Episode 2")
	existing := filepath.Join(cfg.Paths.OutputDir, "Show-A", "Episode-1.mp4")
	testsupport.WriteFile(t, existing, 10)

	decider := pipeline.DeciderFunc(func(context.Context, []conflict.Record) ([]conflict.Decision, error) {
		return nil, context.Canceled
	})
	report, err := pipeline.New(cfg, pipeline.WithDecider(decider), pipeline.WithHistory(store)).Run(context.Background(), root, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !report.Cancelled || len(report.Outcomes) != 0 {
		t.Fatalf("expected a cancelled run with nothing scheduled, got %+v", report)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Show-A", "Episode-2.mp4")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected fresh episode not to be merged, stat err = %v", statErr)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (%v)", err, run)
	}
	if run.Status != history.StatusCancelled {
		t.Fatalf("expected cancelled run, got %+v", run)
	}
}

func TestRunRefusesHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithoutHistory())
	root := writeShow(t, "Episode 1")
	outputDir := filepath.Join(cfg.Paths.OutputDir, "Show-A")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(outputDir, pipeline.LockFileName))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	report, err := pipeline.New(cfg).Run(context.Background(), root, "")
	if !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if report.Summary.Discovered != 1 || len(report.Outcomes) != 0 {
		t.Fatalf("expected discovery without scheduling, got %+v", report)
	}
}

func TestRunCancelledDrainsEveryTask(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub(), testsupport.WithoutHistory())
	root := writeShow(t, "Episode 1", "Episode 2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := pipeline.New(cfg).Run(ctx, root, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || report.OK() {
		t.Fatalf("expected cancelled report, got %+v", report)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected one outcome per task, got %d", len(report.Outcomes))
	}
	for _, o := range report.Outcomes {
		if !errors.Is(o.Err, merge.ErrCancelled) || o.ExitCode != nil {
			t.Fatalf("expected cancelled outcome, got %+v", o)
		}
	}
}

func TestStepwiseEntryPoints(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMuxerStub())
	root := writeShow(t, "Episode 1", "Episode 2")
	p := pipeline.New(cfg)

	binary, err := p.EnsureAvailable()
	if err != nil || binary != cfg.Merge.FFmpegBinary {
		t.Fatalf("EnsureAvailable = %q, %v", binary, err)
	}
	found, err := p.Discover(root, "")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	fresh, conflicts, err := p.Partition(found.Tasks)
	if err != nil || len(fresh) != 2 || len(conflicts) != 0 {
		t.Fatalf("Partition = %d fresh, %d conflicts, %v", len(fresh), len(conflicts), err)
	}
	outcomes := p.RunAll(context.Background(), binary, fresh)
	for _, o := range outcomes {
		if !o.Succeeded {
			t.Fatalf("expected success, got %+v", o)
		}
	}
}

func TestPolicyDecider(t *testing.T) {
	records := make([]conflict.Record, 2)
	for policy, want := range map[string]conflict.Decision{
		config.ConflictOverwrite: conflict.Overwrite,
		config.ConflictSkip:      conflict.Skip,
		config.ConflictAsk:       conflict.Skip,
	} {
		decisions, err := pipeline.PolicyDecider(policy).Decide(context.Background(), records)
		if err != nil || len(decisions) != 2 || decisions[0] != want || decisions[1] != want {
			t.Fatalf("policy %q: got %v, %v", policy, decisions, err)
		}
	}
}
