package pacrunner

// scheduleReclaimLocked arms the reclamation task unless one is pending.
// Caller holds r.mu.
func (r *Runner) scheduleReclaimLocked() {
	if r.gc != 0 || r.closed {
		return
	}
	r.gc = r.loop.Add(r.reclaim)
}

// reclaim is one idle step. A busy interpreter means the process is not idle,
// so the task stays scheduled and tries again on the next tick.
func (r *Runner) reclaim() bool {
	if !r.mu.TryLock() {
		return true
	}
	defer r.mu.Unlock()

	if r.closed {
		r.gc = 0
		return false
	}
	if r.backend.Collect() {
		return true
	}
	r.gc = 0
	return false
}

// ReclaimPending reports whether the reclamation task is scheduled.
func (r *Runner) ReclaimPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gc != 0
}
