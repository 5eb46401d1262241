package routing

// Metrics is a point-in-time snapshot of the router's own activity
// counters: lightweight self-observation without pulling in a full
// metrics exporter.
type Metrics struct {
	ChannelAnnouncementsAccepted uint64
	ChannelAnnouncementsRejected uint64
	ChannelUpdatesAccepted       uint64
	ChannelUpdatesRejected       uint64
	NodeAnnouncementsAccepted    uint64
	NodeAnnouncementsRejected    uint64
	RouteRequestsServed          uint64
	RouteRequestsFailed          uint64
	ChannelsPruned               uint64
}

// getMetricsEvent asks for a Metrics snapshot.
type getMetricsEvent struct {
	gossipReply
	reply chan Metrics
}

func (*getMetricsEvent) isRouterEvent() {}

// GetMetrics returns a snapshot of the router's activity counters.
func (r *ChannelRouter) GetMetrics() (Metrics, error) {
	ev := &getMetricsEvent{gossipReply: newGossipReply(), reply: make(chan Metrics, 1)}
	if err := r.submit(ev, ev.errChan); err != nil {
		return Metrics{}, err
	}
	return <-ev.reply, nil
}
