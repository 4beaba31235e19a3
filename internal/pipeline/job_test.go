package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"filmdex/internal/enrich"
	"filmdex/internal/ingest"
	"filmdex/internal/match"
	"filmdex/internal/pipeline"
	"filmdex/internal/tmdb"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTrackerLifecycle(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	job, ok := tracker.Get(id)
	if !ok || job.State != pipeline.JobRunning {
		t.Fatalf("job = %+v ok=%v, want running", job, ok)
	}

	report := tracker.Progress(id)
	report(pipeline.ProgressEvent{Phase: pipeline.PhaseResolve, Current: 2, Total: 3})
	waitFor(t, "progress to apply", func() bool {
		job, _ := tracker.Get(id)
		return job.Progress[pipeline.PhaseResolve].Current == 2
	})

	tracker.Finish(id, &pipeline.Result{}, nil)
	waitFor(t, "job to finish", func() bool {
		job, _ := tracker.Get(id)
		return job.State == pipeline.JobDone
	})
	job, _ = tracker.Get(id)
	if job.Result == nil || len(job.Errors) != 0 {
		t.Fatalf("finished job = %+v", job)
	}
}

func TestTrackerProgressIsMonotonic(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	report := tracker.Progress(id)
	report(pipeline.ProgressEvent{Phase: pipeline.PhaseEnrich, Current: 3, Total: 4})
	waitFor(t, "first progress", func() bool {
		job, _ := tracker.Get(id)
		return job.Progress[pipeline.PhaseEnrich].Current == 3
	})
	before, _ := tracker.Get(id)

	// A straggling worker reports a lower count; the snapshot must not
	// move backwards.
	report(pipeline.ProgressEvent{Phase: pipeline.PhaseEnrich, Current: 1, Total: 4})
	waitFor(t, "stale progress to apply", func() bool {
		job, _ := tracker.Get(id)
		return job.UpdatedAt.After(before.UpdatedAt)
	})
	job, _ := tracker.Get(id)
	if job.Progress[pipeline.PhaseEnrich].Current != 3 {
		t.Fatalf("progress regressed to %d", job.Progress[pipeline.PhaseEnrich].Current)
	}
}

func TestTrackerFinishCollectsEntryErrors(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	result := &pipeline.Result{Entries: []*pipeline.Entry{
		{CanonicalURL: filmURL("heat-1995")},
		{CanonicalURL: "https://boxd.it/dead/", Error: "expand shortlink: timeout"},
	}}
	tracker.Finish(id, result, errors.New("boom"))

	waitFor(t, "job to fail", func() bool {
		job, _ := tracker.Get(id)
		return job.State == pipeline.JobError
	})
	job, _ := tracker.Get(id)
	if len(job.Errors) != 2 {
		t.Fatalf("errors = %v, want run error plus entry error", job.Errors)
	}
	if job.Errors[0] != "boom" {
		t.Fatalf("errors[0] = %q", job.Errors[0])
	}
	if job.Result == nil || len(job.Result.Entries) != 2 {
		t.Fatalf("result not attached: %+v", job.Result)
	}
}

func TestTrackerGetUnknownJob(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)
	if _, ok := tracker.Get("nope"); ok {
		t.Fatal("unknown id should not resolve")
	}
}

func TestTrackerListNewestFirst(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	older := tracker.Start()
	time.Sleep(2 * time.Millisecond)
	newer := tracker.Start()

	jobs := tracker.List()
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	if jobs[0].ID != newer || jobs[1].ID != older {
		t.Fatalf("order = %s, %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestTrackerRetentionHidesFinishedJobs(t *testing.T) {
	tracker := pipeline.NewTracker(20*time.Millisecond, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	tracker.Finish(id, &pipeline.Result{}, nil)
	waitFor(t, "job to finish", func() bool {
		job, _ := tracker.Get(id)
		return job.State == pipeline.JobDone
	})

	waitFor(t, "job to expire", func() bool {
		_, ok := tracker.Get(id)
		return !ok
	})
	if jobs := tracker.List(); len(jobs) != 0 {
		t.Fatalf("expired job still listed: %v", jobs)
	}
}

func TestTrackerSnapshotsAreCopies(t *testing.T) {
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	job, _ := tracker.Get(id)
	job.Progress[pipeline.PhaseResolve] = pipeline.PhaseProgress{Current: 99, Total: 99}

	again, _ := tracker.Get(id)
	if again.Progress[pipeline.PhaseResolve].Current == 99 {
		t.Fatal("snapshot mutation leaked into tracker state")
	}
}

func TestTrackerDrivesPipelineRun(t *testing.T) {
	url := filmURL("heat-1995")
	resolver := &stubResolver{canon: map[string]string{url: url}}
	matcher := &stubMatcher{matches: map[string]match.Match{
		url: {TMDBID: 949, Kind: tmdb.KindMovie, Source: match.SourceTitleSearch},
	}}
	fetcher := &stubFetcher{records: map[int64]*enrich.Record{
		949: {TMDBID: 949, Kind: tmdb.KindMovie, Title: "Heat"},
	}}
	p := pipeline.New(resolver, matcher, fetcher, nil, pipeline.Options{}, nil)
	tracker := pipeline.NewTracker(time.Hour, nil)
	t.Cleanup(tracker.Close)

	id := tracker.Start()
	go func() {
		result, err := p.Run(context.Background(), []ingest.Reference{ref(url, "Heat", 1995)},
			pipeline.RunOptions{Enrich: true, Progress: tracker.Progress(id)})
		tracker.Finish(id, result, err)
	}()

	waitFor(t, "job to finish", func() bool {
		job, _ := tracker.Get(id)
		return job.State == pipeline.JobDone
	})
	job, _ := tracker.Get(id)
	if job.Result == nil || job.Result.Stats.Enriched != 1 {
		t.Fatalf("job result = %+v", job.Result)
	}
	if job.Progress[pipeline.PhaseResolve].Total != 1 {
		t.Fatalf("resolve progress = %+v", job.Progress)
	}
}
