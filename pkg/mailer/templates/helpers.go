package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithSupportURL(url string) Option { return func(d *EmailData) { d.SupportURL = url } }
func WithShopURL(url string) Option    { return func(d *EmailData) { d.ShopURL = url } }

// Brand carries the app/company names stamped on every email.
type Brand struct {
	AppName     string
	CompanyName string
}

func newData(b Brand, name, email string, opts ...Option) map[string]any {
	d := EmailData{
		Name:        name,
		Email:       email,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
	}
	for _, o := range opts {
		o(&d)
	}
	return ToMap(d)
}

func NewWelcomeData(b Brand, name, email string, opts ...Option) map[string]any {
	return newData(b, name, email, opts...)
}

func NewAccountDeletedData(b Brand, name, email string, opts ...Option) map[string]any {
	return newData(b, name, email, opts...)
}
