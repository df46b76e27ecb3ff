package daemon

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/config"
)

// startRetention schedules pruning of old captures and history.
func (s *server) startRetention() (*cron.Cron, error) {
	schedule, err := config.ParseSchedule(s.conf.RetentionSchedule())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid retention schedule %q", s.conf.RetentionSchedule())
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		s.prune(time.Now())
	}))
	c.Start()

	logrus.WithFields(logrus.Fields{
		"retentionDays": s.conf.RetentionDays(),
		"schedule":      s.conf.RetentionSchedule(),
		"nextRun":       schedule.Next(time.Now()).Format(time.DateTime),
	}).Info("retention job scheduled")

	return c, nil
}

// prune removes captures and history records older than the retention period.
func (s *server) prune(now time.Time) {
	maxAge := time.Duration(s.conf.RetentionDays()) * 24 * time.Hour
	if maxAge <= 0 {
		return
	}

	for _, l := range s.loops {
		n, err := l.dir.Prune(maxAge, now)
		if err != nil {
			logrus.WithField("camera", l.Name()).Errorf("failed to prune captures: %v", err)
			continue
		}
		if n > 0 {
			logrus.WithFields(logrus.Fields{
				"camera":  l.Name(),
				"removed": n,
				"dir":     l.dir.Path(),
			}).Info("pruned old captures")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.repo.DeleteOlderThan(ctx, now.Add(-maxAge))
	if err != nil {
		logrus.Errorf("failed to prune capture history: %v", err)
		return
	}
	logrus.Debugf("pruned %d history records", n)
}
