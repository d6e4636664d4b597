// services/precache.go - Background recommend-cache warmer
package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"teammatcher/lock"
)

const precacheLockKey = "teammatcher:precache:lock"

// PrecacheJob periodically refreshes the recommendation cache for the
// configured main users. The distributed lock keeps multiple instances from
// warming at the same time; an instance that loses the lock simply skips the
// round.
type PrecacheJob struct {
	users    *UserService
	locker   lock.Locker
	interval time.Duration
	userIDs  []uint
	stop     chan struct{}
	done     chan struct{}
}

// NewPrecacheJob reads its schedule and target users from the environment:
// PRECACHE_INTERVAL_MINUTES (default 60) and PRECACHE_USER_IDS (comma
// separated ids).
func NewPrecacheJob(users *UserService, locker lock.Locker) *PrecacheJob {
	interval := 60
	if v, err := strconv.Atoi(os.Getenv("PRECACHE_INTERVAL_MINUTES")); err == nil && v > 0 {
		interval = v
	}
	var ids []uint
	for _, part := range strings.Split(os.Getenv("PRECACHE_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseUint(part, 10, 32); err == nil {
			ids = append(ids, uint(id))
		}
	}
	return &PrecacheJob{
		users:    users,
		locker:   locker,
		interval: time.Duration(interval) * time.Minute,
		userIDs:  ids,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the warmer goroutine. No-op when no users are configured.
func (j *PrecacheJob) Start() {
	if len(j.userIDs) == 0 {
		close(j.done)
		return
	}
	go j.run()
}

// Stop shuts the warmer down and waits for the current round to finish.
func (j *PrecacheJob) Stop() {
	close(j.stop)
	<-j.done
}

func (j *PrecacheJob) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.warm()
		case <-j.stop:
			return
		}
	}
}

func (j *PrecacheJob) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	release, ok, err := j.locker.TryAcquire(ctx, precacheLockKey)
	if err != nil {
		log.Printf("precache: lock error: %v", err)
		return
	}
	if !ok {
		// Another instance is warming this round.
		return
	}
	defer release()

	for _, userID := range j.userIDs {
		if err := j.users.WarmRecommend(ctx, userID); err != nil {
			log.Printf("precache: warm user %d failed: %v", userID, err)
		}
	}
}
