package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSchedule runs cleanup every 30 minutes
const DefaultSchedule = "*/30 * * * *"

// FileSweeper removes uploads older than a threshold
type FileSweeper interface {
	Sweep(maxAge time.Duration) int
}

// SessionSweeper removes expired conversation sessions
type SessionSweeper interface {
	Sweep() int
}

// FileSweepJob deletes uploaded files older than MaxAge
type FileSweepJob struct {
	Files        FileSweeper
	MaxAge       time.Duration
	ScheduleExpr string
}

var _ Job = (*FileSweepJob)(nil)

func (j *FileSweepJob) Name() string { return "file_sweep" }

func (j *FileSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSchedule
}

func (j *FileSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	maxAge := j.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if n := j.Files.Sweep(maxAge); n > 0 {
		log.Info().Int("count", n).Msg("Swept old uploads")
	}
	return nil
}

// SessionSweepJob evicts sessions idle past their timeout
type SessionSweepJob struct {
	Sessions     SessionSweeper
	ScheduleExpr string
}

var _ Job = (*SessionSweepJob)(nil)

func (j *SessionSweepJob) Name() string { return "session_sweep" }

func (j *SessionSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSchedule
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := j.Sessions.Sweep(); n > 0 {
		log.Info().Int("count", n).Msg("Swept idle sessions")
	}
	return nil
}
