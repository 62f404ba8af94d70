package metrics

import (
	"context"

	"github.com/zfogg/tinyforum/backend/internal/events"
)

// SubscribeForumEvents counts forum activity from the event bus.
func SubscribeForumEvents(bus *events.Bus) {
	m := Get()

	bus.Subscribe(events.ThreadCreated, "metrics", func(ctx context.Context, ev events.Event) error {
		m.ThreadsCreatedTotal.Inc()
		return nil
	})
	bus.Subscribe(events.PostCreated, "metrics", func(ctx context.Context, ev events.Event) error {
		m.PostsCreatedTotal.Inc()
		return nil
	})
	bus.Subscribe(events.PostReported, "metrics", func(ctx context.Context, ev events.Event) error {
		reason := "unknown"
		if ev.Report != nil {
			reason = string(ev.Report.Reason)
		}
		m.ReportsCreatedTotal.WithLabelValues(reason).Inc()
		return nil
	})
	bus.Subscribe(events.PostReportHandled, "metrics", func(ctx context.Context, ev events.Event) error {
		action := "unknown"
		if ev.Report != nil {
			action = string(ev.Report.ModerationStatus)
		}
		m.ReportsHandledTotal.WithLabelValues(action).Inc()
		return nil
	})
}

// RecordSearch counts a search served by backend ("elasticsearch" or "sql").
func RecordSearch(backend string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Get().SearchRequestsTotal.WithLabelValues(backend, status).Inc()
}
