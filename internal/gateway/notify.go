package gateway

import (
	"context"
	"net/http"
)

// NotifyClient sends SMS and email through the notification service.
type NotifyClient struct {
	baseURL string
	client  *http.Client
}

// NewNotifyClient creates a new NotifyClient.
func NewNotifyClient(baseURL string, client *http.Client) *NotifyClient {
	return &NotifyClient{baseURL: baseURL, client: client}
}

type smsRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type emailRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// SendSMS posts a text message.
func (c *NotifyClient) SendSMS(ctx context.Context, recipient, message string) error {
	return doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, "/notify/sms"),
		smsRequest{Recipient: recipient, Message: message}, nil)
}

// SendEmail posts an email.
func (c *NotifyClient) SendEmail(ctx context.Context, recipient, subject, message string) error {
	return doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, "/notify/email"),
		emailRequest{Recipient: recipient, Subject: subject, Message: message}, nil)
}
