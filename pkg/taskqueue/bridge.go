package taskqueue

// attachLocked subscribes an event-conditioned task to the queue's bus.
// The handler only flips the task's flag; polling decides completion.
func (q *Queue) attachLocked(t *Task) error {
	c, ok := t.condition.(*eventCondition)
	if !ok {
		return nil
	}
	if q.bus == nil {
		return ErrNoEventBus
	}
	t.eventMet.Store(false)
	t.eventToken = c.subscribe(q.bus, func() {
		if t.owner.Load() == q && !t.Status().IsTerminal() {
			t.eventMet.Store(true)
		}
	})
	if !t.eventToken.Valid() {
		return ErrEventSubscription
	}
	return nil
}
