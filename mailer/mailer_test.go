package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*ses.SendRawEmailOutput)
	return out, args.Error(1)
}

func testMessage() Message {
	return Message{
		From:           "reports@example.com",
		To:             []string{"lead@example.com", "ops@example.com"},
		Cc:             []string{"manager@example.com"},
		Subject:        "Daily Queue Report",
		ReturnPath:     "bounces@example.com",
		ReplyTo:        "support@example.com",
		AttachmentName: AttachmentName("Daily Queue Report", "03.04.2024"),
		Attachment:     bytes.Repeat([]byte("team,idle,handled\n"), 20),
	}
}

func TestCompose(t *testing.T) {
	m := testMessage()
	raw, err := Compose(m)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "reports@example.com", msg.Header.Get("From"))
	assert.Equal(t, "lead@example.com, ops@example.com", msg.Header.Get("To"))
	assert.Equal(t, "manager@example.com", msg.Header.Get("Cc"))
	assert.Equal(t, "bounces@example.com", msg.Header.Get("Return-Path"))
	assert.Equal(t, "support@example.com", msg.Header.Get("Reply-To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Daily Queue Report", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])

	body, err := reader.NextPart()
	require.NoError(t, err)
	altType, altParams, err := mime.ParseMediaType(body.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", altType)

	alt := multipart.NewReader(body, altParams["boundary"])
	text, err := alt.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=UTF-8", text.Header.Get("Content-Type"))
	textBody, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Contains(t, string(textBody), "Your scheduled report is attached.")

	html, err := alt.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=UTF-8", html.Header.Get("Content-Type"))

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "Daily_Queue_Report_03.04.2024.csv", attachment.FileName())
	assert.Equal(t, "base64", attachment.Header.Get("Content-Transfer-Encoding"))
	data, err := io.ReadAll(attachment)
	require.NoError(t, err)
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\r\n")) {
		assert.LessOrEqual(t, len(line), 76)
	}

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReportDateAndAttachmentName(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, "02.29.2024", ReportDate(now))
	assert.Equal(t, "Agent_Report_02.29.2024.csv", AttachmentName("Agent Report", ReportDate(now)))
}

func TestRoutesSelect(t *testing.T) {
	routes := Routes{
		Routes: []Route{
			{Key: "Sales", To: []string{"sales@example.com"}},
			{Key: "support", To: []string{"support@example.com"}},
		},
		Default: Route{To: []string{"all@example.com"}},
	}
	assert.Equal(t, "sales@example.com", routes.Select("reports/daily-sales-queue.csv").To[0])
	assert.Equal(t, "support@example.com", routes.Select("reports/SUPPORT.csv").To[0])
	assert.Equal(t, "all@example.com", routes.Select("reports/billing.csv").To[0])
}

func TestValidateAddresses(t *testing.T) {
	assert.NoError(t, ValidateAddresses("a@example.com", "first.last@example.co.uk"))
	assert.ErrorIs(t, ValidateAddresses("a@example.com", "not-an-address"), ErrInvalidAddress)
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, SplitAddresses(" a@example.com,, b@example.com "))
	assert.Nil(t, SplitAddresses(""))
}

func TestSESSenderSend(t *testing.T) {
	client := new(mockSES)
	client.On("SendRawEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendRawEmailInput) bool {
		return aws.ToString(in.Source) == "reports@example.com" &&
			assert.ObjectsAreEqual([]string{"lead@example.com", "ops@example.com", "manager@example.com"}, in.Destinations) &&
			len(in.RawMessage.Data) > 0
	})).Return(&ses.SendRawEmailOutput{MessageId: aws.String("msg-1")}, nil)

	id, err := (&SESSender{Client: client}).Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
}

func TestSESSenderErrors(t *testing.T) {
	client := new(mockSES)
	client.On("SendRawEmail", mock.Anything, mock.Anything).Return(nil, errors.New("MessageRejected"))
	sender := &SESSender{Client: client}

	_, err := sender.Send(context.Background(), testMessage())
	assert.ErrorContains(t, err, "MessageRejected")

	_, err = sender.Send(context.Background(), Message{From: "reports@example.com"})
	assert.ErrorIs(t, err, ErrNoRecipients)
	client.AssertNumberOfCalls(t, "SendRawEmail", 1)
}
