package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
)

const (
	templateReportHandled = "report_handled"

	sendTimeout = 10 * time.Second
)

var reportHandledText = texttemplate.Must(texttemplate.New("text").Parse(`Hi {{.Name}},

Thank you for reporting a post in "{{.ThreadTitle}}".

A community moderator reviewed your report and decided to {{.Action}}.

{{.Link}}
`))

var reportHandledHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.6; color: #333;">
	<p>Hi {{.Name}},</p>
	<p>Thank you for reporting a post in <a href="{{.Link}}">{{.ThreadTitle}}</a>.</p>
	<p>A community moderator reviewed your report and decided to <strong>{{.Action}}</strong>.</p>
	<blockquote style="color: #666;">{{.Summary}}</blockquote>
</body>
</html>
`))

type reportHandledData struct {
	Name        string
	ThreadTitle string
	Action      string
	Summary     string
	Link        string
}

// Notifier emails users about the outcome of their reports.
type Notifier struct {
	sender  Sender
	baseURL string
}

// NewNotifier returns a notifier linking back to baseURL.
func NewNotifier(sender Sender, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: baseURL}
}

// Subscribe registers the notifier on bus.
func (n *Notifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.PostReportHandled, "email", n.ReportHandled)
}

// ReportHandled tells the reporter which action a moderator took.
func (n *Notifier) ReportHandled(ctx context.Context, ev events.Event) error {
	report := ev.Report
	if report == nil || report.AuthoredBy == nil || report.AuthoredBy.Email == "" {
		return nil
	}

	msg, err := n.reportHandledMessage(report, ev.Thread)
	if err != nil {
		return err
	}

	// The request that handled the report may finish before SES answers.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	err = n.sender.Send(sendCtx, msg)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.Get().EmailsSentTotal.WithLabelValues(templateReportHandled, status).Inc()
	if err != nil {
		return fmt.Errorf("report %s: %w", report.ID, err)
	}

	logger.Log.Debug("Report outcome emailed", logger.WithReportID(report.ID), zap.String("to", msg.To))
	return nil
}

func (n *Notifier) reportHandledMessage(report *models.PostReport, thread *models.Thread) (Message, error) {
	data := reportHandledData{
		Name:   report.AuthoredBy.Name(),
		Action: report.ModerationStatus.ActionLabel(),
		Link:   n.baseURL,
	}
	if report.Post != nil {
		data.Summary = report.Post.Summary()
		if thread == nil {
			thread = report.Post.Thread
		}
	}
	if thread != nil {
		data.ThreadTitle = thread.Title
		data.Link = n.baseURL + thread.Location()
	}

	var text, html bytes.Buffer
	if err := reportHandledText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := reportHandledHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	return Message{
		To:       report.AuthoredBy.Email,
		Subject:  "Your report was reviewed",
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
