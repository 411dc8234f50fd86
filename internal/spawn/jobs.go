package spawn

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// JobID identifies a ProduceOverTime job.
type JobID uint64

// JobProgress is a read-only view of a production job.
type JobProgress struct {
	ID        JobID
	Tag       int32
	Requested int32
	Produced  int32
	Skipped   int32 // items consumed by a failed probability roll or a partial group
	Remaining int32
	NextAt    time.Time
}

type job struct {
	id        JobID
	tag       int32
	req       model.SpawnRequest
	remaining int32
	produced  int32
	skipped   int32
	nextAt    time.Time // zero: due on the next tick
}

func (j *job) progress() JobProgress {
	return JobProgress{
		ID:        j.id,
		Tag:       j.tag,
		Requested: j.req.Count,
		Produced:  j.produced,
		Skipped:   j.skipped,
		Remaining: j.remaining,
		NextAt:    j.nextAt,
	}
}

// ProduceOverTime schedules req as a sequence of single productions, one
// item per Interval, realised by subsequent ticks. Items that fail
// admission or placement stay due and are retried on a later tick.
func (d *Dispatcher) ProduceOverTime(req model.SpawnRequest, tag int32) (JobID, error) {
	if req.Count < 1 {
		return 0, fmt.Errorf("scheduling %d units: %w", req.Count, ErrNotReady)
	}

	d.nextJobID++
	j := &job{
		id:        d.nextJobID,
		tag:       tag,
		req:       req,
		remaining: req.Count,
	}
	d.jobs = append(d.jobs, j)
	if d.state == StateActive {
		d.setState(StateWaveTransition)
	}
	d.touch()

	slog.Debug("production job scheduled",
		"jobID", j.id,
		"tag", tag,
		"templateID", req.TemplateID,
		"count", req.Count,
		"interval", req.Interval,
		"cluster", req.AsCluster)
	return j.id, nil
}

// processJobs runs due items of every job. Paused or inactive
// dispatchers make no progress.
func (d *Dispatcher) processJobs(now time.Time) {
	if !d.accepting() || len(d.jobs) == 0 {
		return
	}

	kept := d.jobs[:0]
	for _, j := range d.jobs {
		d.runJob(j, now)
		if j.remaining > 0 {
			kept = append(kept, j)
			continue
		}
		slog.Debug("production job finished",
			"jobID", j.id,
			"tag", j.tag,
			"produced", j.produced,
			"skipped", j.skipped)
	}
	clear(d.jobs[len(kept):])
	d.jobs = kept

	if len(d.jobs) == 0 && d.state == StateWaveTransition {
		d.setState(StateActive)
	}
}

func (d *Dispatcher) runJob(j *job, now time.Time) {
	for j.remaining > 0 && !now.Before(j.nextAt) {
		if !d.rollItem(j.req) {
			j.skipped++
			j.remaining--
			j.nextAt = now.Add(j.req.Interval)
			d.touch()
			if j.req.Interval > 0 {
				return
			}
			continue
		}

		if j.req.AsCluster {
			res, err := d.produceGroup(int(j.remaining), j.req.ClusterRadius, j.req.TemplateID, j.tag)
			if err != nil {
				d.logJobRetry(j, err)
				return
			}
			j.produced += int32(res.Produced())
			j.skipped += j.remaining - int32(res.Produced())
			j.remaining = 0
			d.touch()
			return
		}

		if _, _, err := d.produceSelected(j.req.TemplateID, j.tag); err != nil {
			d.logJobRetry(j, err)
			return
		}
		j.produced++
		j.remaining--
		j.nextAt = now.Add(j.req.Interval)
		d.touch()
		if j.req.Interval > 0 {
			return
		}
	}
}

func (d *Dispatcher) rollItem(req model.SpawnRequest) bool {
	prob := req.EffectiveProbability()
	if prob >= 1.0 {
		return true
	}
	return d.rng.Float64() < prob
}

func (d *Dispatcher) logJobRetry(j *job, err error) {
	if IsAdmissionError(err) || errors.Is(err, ErrPointUnavailable) {
		return
	}
	slog.Debug("production job item deferred", "jobID", j.id, "tag", j.tag, "error", err)
}

// Job returns the progress of a pending job.
func (d *Dispatcher) Job(id JobID) (JobProgress, bool) {
	for _, j := range d.jobs {
		if j.id == id {
			return j.progress(), true
		}
	}
	return JobProgress{}, false
}

// Jobs returns the progress of all pending jobs.
func (d *Dispatcher) Jobs() []JobProgress {
	out := make([]JobProgress, 0, len(d.jobs))
	for _, j := range d.jobs {
		out = append(out, j.progress())
	}
	return out
}

// HasPendingJobs reports whether any job with the given tag is queued.
func (d *Dispatcher) HasPendingJobs(tag int32) bool {
	for _, j := range d.jobs {
		if j.tag == tag {
			return true
		}
	}
	return false
}

// CancelJobs drops every pending job with the given tag.
func (d *Dispatcher) CancelJobs(tag int32) int {
	kept := d.jobs[:0]
	for _, j := range d.jobs {
		if j.tag != tag {
			kept = append(kept, j)
		}
	}
	n := len(d.jobs) - len(kept)
	clear(d.jobs[len(kept):])
	d.jobs = kept
	d.afterCancel(n)
	return n
}

// CancelAllJobs drops every pending job.
func (d *Dispatcher) CancelAllJobs() int {
	n := len(d.jobs)
	clear(d.jobs)
	d.jobs = d.jobs[:0]
	d.afterCancel(n)
	return n
}

func (d *Dispatcher) afterCancel(n int) {
	if n == 0 {
		return
	}
	d.touch()
	if len(d.jobs) == 0 && d.state == StateWaveTransition {
		d.setState(StateActive)
	}
	slog.Debug("production jobs cancelled", "count", n, "pending", len(d.jobs))
}
