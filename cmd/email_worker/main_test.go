package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-shop/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-shop/pkg/mailer/templates"
)

type stubSender struct {
	sent int
	err  error
}

func (s *stubSender) Send(context.Context, string, string, string, string) error {
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

func encode(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestProcess(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	welcome := mailer.EmailJob{
		To:       "ada@example.com",
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(tpl.Brand{AppName: "Shop"}, "Ada", "ada@example.com"),
	}

	s := &stubSender{}
	assert.Equal(t, ack, process(ctx, s, encode(t, welcome), logger))
	assert.Equal(t, 1, s.sent)

	assert.Equal(t, drop, process(ctx, s, []byte("{not json"), logger))
	assert.Equal(t, drop, process(ctx, s, encode(t, mailer.EmailJob{Template: tpl.Welcome}), logger))
	assert.Equal(t, drop, process(ctx, s, encode(t, mailer.EmailJob{To: "a@b.c", Template: "missing"}), logger))

	failing := &stubSender{err: errors.New("mailgun 503")}
	assert.Equal(t, retry, process(ctx, failing, encode(t, welcome), logger))
}
