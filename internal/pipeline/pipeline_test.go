package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-emotion-go/internal/types"
)

type stubTranscriber struct {
	tr  types.Transcript
	err error
}

func (s stubTranscriber) Transcribe(context.Context, string) (types.Transcript, error) {
	return s.tr, s.err
}

type stubAnalyzer struct {
	label string
	err   error
	panic bool
	calls int
}

func (s *stubAnalyzer) Analyze(context.Context, string) (types.Sentiment, error) {
	s.calls++
	if s.panic {
		panic("classifier exploded")
	}
	return types.Sentiment{Label: s.label, Confidence: 0.9}, s.err
}

type recorder struct {
	got []types.NotificationRequest
	err error
}

func (r *recorder) Notify(_ context.Context, req types.NotificationRequest) error {
	r.got = append(r.got, req)
	return r.err
}

func TestEnrich(t *testing.T) {
	assert.Equal(t,
		"hello there Note that I am feeling this emotion, adjust your answer accordingly: positive. Do not mention my emotional state",
		Enrich("hello there", "positive"))
	assert.Equal(t,
		"Note that I am feeling this emotion, adjust your answer accordingly: neutral. Do not mention my emotional state",
		Enrich("", "neutral"))
}

func TestRunSendsOneNotification(t *testing.T) {
	n := &recorder{}
	o := New(stubTranscriber{tr: types.Transcript{Text: "where is my parcel", OK: true}}, &stubAnalyzer{label: "negative"}, n)

	res, err := o.Run(context.Background(), "a.wav", "+15550100")
	require.NoError(t, err)
	require.Len(t, n.got, 1)
	assert.Equal(t, "+15550100", n.got[0].Phone)
	assert.Equal(t, Enrich("where is my parcel", "negative"), n.got[0].Text)
	assert.True(t, res.Notified)
	assert.Equal(t, "negative", res.Sentiment.Label)
}

func TestRunAbsentTranscriptIsNotAFailure(t *testing.T) {
	n := &recorder{}
	o := New(stubTranscriber{}, &stubAnalyzer{label: "neutral"}, n)

	_, err := o.Run(context.Background(), "a.wav", "123")
	require.NoError(t, err)
	require.Len(t, n.got, 1)
	assert.Equal(t, Enrich("", "neutral"), n.got[0].Text)
}

func TestRunTranscribeErrorStopsEverything(t *testing.T) {
	n := &recorder{}
	a := &stubAnalyzer{label: "neutral"}
	o := New(stubTranscriber{err: context.Canceled}, a, n)

	_, err := o.Run(context.Background(), "a.wav", "123")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageTranscribe, se.Stage)
	assert.True(t, se.Analytic())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.calls)
	assert.Empty(t, n.got)
}

func TestRunSentimentFailureSkipsNotify(t *testing.T) {
	n := &recorder{}
	o := New(stubTranscriber{tr: types.Transcript{Text: "hi", OK: true}}, &stubAnalyzer{err: errors.New("bad wav")}, n)

	res, err := o.Run(context.Background(), "a.wav", "123")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSentiment, se.Stage)
	assert.Empty(t, n.got)
	assert.Equal(t, "hi", res.Transcript.Text)
}

func TestRunNotifyFailureIsContained(t *testing.T) {
	n := &recorder{err: errors.New("connection refused")}
	o := New(stubTranscriber{tr: types.Transcript{Text: "hi", OK: true}}, &stubAnalyzer{label: "positive"}, n)

	var (
		res Result
		err error
	)
	require.NotPanics(t, func() { res, err = o.Run(context.Background(), "a.wav", "123") })
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageNotify, se.Stage)
	assert.False(t, se.Analytic())
	assert.False(t, res.Notified)
	assert.Equal(t, "positive", res.Sentiment.Label)
	assert.Len(t, n.got, 1)
}

func TestRunRecoversPanics(t *testing.T) {
	n := &recorder{}
	o := New(stubTranscriber{tr: types.Transcript{Text: "hi", OK: true}}, &stubAnalyzer{panic: true}, n)

	var err error
	require.NotPanics(t, func() { _, err = o.Run(context.Background(), "a.wav", "123") })
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSentiment, se.Stage)
	assert.Contains(t, err.Error(), "classifier exploded")
	assert.Empty(t, n.got)
}
