package helpers

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (l *eventLog) all() []*sentry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*sentry.Event(nil), l.events...)
}

// bindSentry installs a client on the current hub that records events instead of sending them.
func bindSentry(t *testing.T) *eventLog {
	t.Helper()
	log := &eventLog{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@sentry.invalid/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			log.mu.Lock()
			log.events = append(log.events, e)
			log.mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	sentry.CurrentHub().BindClient(client)
	t.Cleanup(func() { sentry.CurrentHub().BindClient(nil) })
	return log
}

func TestSentryHookCapturesErrors(t *testing.T) {
	events := bindSentry(t)
	logger, _ := test.NewNullLogger()
	logger.AddHook(SentryHook{})

	logger.WithError(errors.New("disk full")).WithField("job", "reindex").Error("job failed")
	logger.Warn("not reported")

	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, "reindex", got[0].Extra["job"])
}

func TestSentryHookSkipsRequestEntries(t *testing.T) {
	events := bindSentry(t)
	logger, _ := test.NewNullLogger()
	logger.AddHook(SentryHook{})

	logger.WithError(errors.New("boom")).WithField(RequestIDField, "req-1").Error("request failed")
	assert.Empty(t, events.all())
}

func TestSentryHookKeepsScopesApart(t *testing.T) {
	events := bindSentry(t)
	logger, _ := test.NewNullLogger()
	logger.AddHook(SentryHook{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.WithFields(logrus.Fields{"worker": n}).Error("tick")
		}(i)
	}
	wg.Wait()

	got := events.all()
	require.Len(t, got, 20)
	for _, e := range got {
		assert.Len(t, e.Extra, 1)
	}
}
