package email

import "context"

// Attachment is a binary file shipped with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Provider interface {
	Send(ctx context.Context, to []string, subject string, body string) error
	SendWithAttachment(ctx context.Context, to []string, subject string, body string, attachment Attachment) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, body string) error {
	return nil
}

func (p *NoOpProvider) SendWithAttachment(ctx context.Context, to []string, subject string, body string, attachment Attachment) error {
	return nil
}
