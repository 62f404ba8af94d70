package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"github.com/zfogg/tinyforum/backend/internal/models"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

type captureSender struct {
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func handledEvent() events.Event {
	thread := &models.Thread{ID: "t1", Title: "Tabs <or> spaces", ModerationStatus: models.StatusGood}
	post := &models.Post{ID: "p1", ThreadID: "t1", Thread: thread, Text: "<p>buy pills</p>"}
	report := &models.PostReport{
		ID:               "r1",
		AuthoredBy:       &models.User{Email: "rita@example.com", Username: "rita", DisplayName: "Rita"},
		Post:             post,
		ModerationStatus: models.StatusHidden,
	}
	return events.Event{Kind: events.PostReportHandled, Report: report, Post: post}
}

func TestSESSender(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSenderWithClient(client, "noreply@example.com", "tinyforum")

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", TextBody: "plain"}))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "tinyforum <noreply@example.com>", aws.ToString(in.Source))
	assert.Equal(t, []string{"a@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(in.Message.Body.Text.Data))
	assert.Nil(t, in.Message.Body.Html)

	client.err = errors.New("throttled")
	assert.ErrorContains(t, sender.Send(context.Background(), Message{To: "a@example.com"}), "throttled")

	bare := NewSESSenderWithClient(client, "noreply@example.com", "")
	assert.Equal(t, "noreply@example.com", bare.from())
}

func TestNotifierReportHandled(t *testing.T) {
	logger.Nop()
	sender := &captureSender{}
	n := NewNotifier(sender, "https://forum.example")
	bus := events.NewBus()
	n.Subscribe(bus)

	before := testutil.ToFloat64(metrics.Get().EmailsSentTotal.WithLabelValues(templateReportHandled, "success"))
	bus.Publish(context.Background(), handledEvent())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "rita@example.com", msg.To)
	assert.Contains(t, msg.TextBody, "Hi Rita")
	assert.Contains(t, msg.TextBody, "hide content")
	assert.Contains(t, msg.TextBody, "https://forum.example/api/v1/threads/t1")
	assert.Contains(t, msg.HTMLBody, "Tabs &lt;or&gt; spaces")
	assert.Contains(t, msg.HTMLBody, "buy pills")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Get().EmailsSentTotal.WithLabelValues(templateReportHandled, "success")))
}

func TestNotifierSkipsAndFails(t *testing.T) {
	logger.Nop()
	sender := &captureSender{}
	n := NewNotifier(sender, "https://forum.example")

	require.NoError(t, n.ReportHandled(context.Background(), events.Event{Kind: events.PostReportHandled}))
	assert.Empty(t, sender.sent)

	sender.err = errors.New("smtp down")
	err := n.ReportHandled(context.Background(), handledEvent())
	assert.ErrorContains(t, err, "smtp down")
}

func TestLogSender(t *testing.T) {
	logger.Nop()
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "x@example.com"}))
}
