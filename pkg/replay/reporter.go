package replay

// Update is one message from a playback worker. Exactly one of Progress and
// Result is set.
type Update struct {
	Progress *Progress
	Result   *Result
}

// Reporter turns the worker callbacks into a channel the foreground can
// drain. Progress updates are dropped when the buffer is full; the final
// Result is always delivered, after which the channel is closed.
type Reporter struct {
	updates chan Update
}

// NewReporter allocates a reporter with room for buffer pending updates.
func NewReporter(buffer int) *Reporter {
	if buffer < 1 {
		buffer = 1
	}
	return &Reporter{updates: make(chan Update, buffer)}
}

// OnProgress is suitable as the onProgress argument of Session.Play.
func (r *Reporter) OnProgress(p Progress) {
	select {
	case r.updates <- Update{Progress: &p}:
	default:
	}
}

// OnComplete is suitable as the onComplete argument of Session.Play.
func (r *Reporter) OnComplete(res Result) {
	r.updates <- Update{Result: &res}
	close(r.updates)
}

// Updates returns the receive side of the channel.
func (r *Reporter) Updates() <-chan Update {
	return r.updates
}
