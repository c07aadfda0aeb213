package mailer

import (
	"context"
	"errors"
	"fmt"

	tpl "github.com/oksasatya/go-ddd-shop/pkg/mailer/templates"
)

// ErrBadJob marks jobs that can never be delivered; the worker drops them instead of requeueing.
var ErrBadJob = errors.New("bad email job")

// Dispatch renders job (when it names a template) and hands it to s.
func Dispatch(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		data := job.Data
		if data == nil {
			data = map[string]any{}
		}
		if _, ok := data["Email"]; !ok {
			data["Email"] = job.To
		}
		var err error
		subject, text, html, err = tpl.Render(job.Template, data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrBadJob)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
