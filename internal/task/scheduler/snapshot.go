package scheduler

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	triggers := append([]*trigger(nil), s.triggers...)
	started := s.started && !s.stopped
	inflight := s.running
	s.mu.Unlock()

	now := s.now().In(s.loc)
	items := make([]TriggerInfo, 0, len(triggers))
	for _, t := range triggers {
		it := TriggerInfo{
			Name:    t.name,
			Spec:    t.spec,
			Options: t.opt,
			Running: t.state.Running(),
			Next:    nextRuns(t.sched, now, 3),
		}
		if started {
			it.Prev = s.c.Entry(t.entryID).Prev
		}
		t.mu.Lock()
		it.Last = t.last
		it.Fired = t.fired
		it.Dropped = t.dropped
		it.Skipped = t.skipped
		t.mu.Unlock()
		items = append(items, it)
	}
	return Snapshot{
		Timezone: s.loc.String(),
		Started:  started,
		InFlight: inflight,
		Triggers: items,
	}
}
