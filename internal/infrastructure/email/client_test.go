package email

import (
	"context"
	"errors"
	"testing"

	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/resendlabs/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (c *captureSender) Send(req *resend.SendEmailRequest) (resend.SendEmailResponse, error) {
	c.sent = append(c.sent, req)
	return resend.SendEmailResponse{Id: "msg_1"}, c.err
}

func TestNotifyLead(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifierWithSender(sender, Settings{To: "sales@example.com", SiteName: "Chapkhane"})

	err := n.NotifyLead(context.Background(), &leads.Lead{
		Name:   "<b>Sara</b>",
		Email:  "sara@example.com",
		Score:  91,
		Status: leads.StatusHot,
		Params: leads.Params{ProductType: "gold_foil", Quantity: 12000},
	})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"sales@example.com"}, msg.To)
	assert.Equal(t, "sara@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Subject, "hot")
	assert.Contains(t, msg.Html, "gold_foil")
	assert.Contains(t, msg.Html, "&lt;b&gt;Sara&lt;/b&gt;")
	assert.Equal(t, "Intentstack <noreply@example.com>", msg.From)
}

func TestNotifyLead_SendError(t *testing.T) {
	n := NewNotifierWithSender(&captureSender{err: errors.New("rate limited")}, Settings{To: "x@example.com"})

	err := n.NotifyLead(context.Background(), &leads.Lead{Name: "A", Score: 80, Status: leads.StatusHot})
	assert.ErrorContains(t, err, "rate limited")
}

func TestNewResendNotifier_DisabledWithoutConfig(t *testing.T) {
	assert.Nil(t, NewResendNotifier(Settings{}))
	assert.Nil(t, NewResendNotifier(Settings{APIKey: "re_x"}))
}
