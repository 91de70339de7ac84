package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplates(t *testing.T) {
	subject, body, err := Render(TemplatePurchaseConfirmation, map[string]interface{}{
		"customer_name":   "Ada",
		"course_title":    "Go Basics",
		"course_url":      "https://lernhub.test/courses/c1",
		"purchase_amount": 19.99,
	})
	require.NoError(t, err)
	assert.Equal(t, "Purchase Confirmed", subject)
	assert.Contains(t, body, "Go Basics")
	assert.Contains(t, body, "19.99")
	assert.Contains(t, body, "https://lernhub.test/courses/c1")
	assert.NotContains(t, body, "<img", "no image tag without course_image")

	_, body, err = Render(TemplateWelcome, nil)
	require.NoError(t, err)
	assert.Contains(t, body, "Hi there")

	_, body, err = Render(TemplateProPlanActivated, map[string]interface{}{
		"name":               "Ada",
		"plan_type":          "month",
		"current_period_end": "2026-11-15",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "(month)")
	assert.Contains(t, body, "2026-11-15")
}

func TestRenderEscapesHTML(t *testing.T) {
	_, body, err := Render(TemplateWelcome, map[string]interface{}{"name": "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, err := Render("nope", nil)
	assert.Error(t, err)
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := &SMTPSender{
		Host: "smtp.test",
		Port: "2525",
		From: "no-reply@lernhub.test",
		sendMail: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			assert.Nil(t, a, "no auth without credentials")
			return nil
		},
	}

	require.NoError(t, s.Send(context.Background(), "a@x.com", "Hello", "<p>hi</p>"))
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, "no-reply@lernhub.test", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: no-reply@lernhub.test\r\nTo: a@x.com\r\nSubject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\n<p>hi</p>"))
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	s := &SMTPSender{}
	assert.Error(t, s.Send(context.Background(), "a@x.com", "s", "b"))
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{}, f.err
}

func TestSESSender(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake, from: "no-reply@lernhub.test"}

	require.NoError(t, s.Send(context.Background(), "a@x.com", "Hello", "<p>hi</p>"))
	require.NotNil(t, fake.input)
	assert.Equal(t, "no-reply@lernhub.test", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"a@x.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(fake.input.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(fake.input.Message.Body.Html.Data))

	fake.err = errors.New("throttled")
	assert.ErrorContains(t, s.Send(context.Background(), "a@x.com", "Hello", "<p>hi</p>"), "throttled")
}
