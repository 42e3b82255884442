package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core"
)

func Test_sendgridService_build(t *testing.T) {
	msg := core.EmailMessage{
		TemplateName: "bill_generated",
		To:           []mail.Address{{Name: "Almaz", Address: "almaz@test.et"}},
		Bcc:          []mail.Address{{Address: "billing@test.et"}},
		Subject:      "Your bill",
		TextContent:  "You owe 120.00 ETB",
	}

	t.Run("prod", func(t *testing.T) {
		svc := NewSendgridService(&core.Config{Env: "PROD", AppName: "SmartBill"}, testLogger(t)).(*sendgridService)
		m := svc.build(msg)

		require.Len(t, m.Personalizations, 1)
		p := m.Personalizations[0]
		assert.Equal(t, "[SmartBill] Your bill", p.Subject)
		require.Len(t, p.To, 1)
		assert.Equal(t, "almaz@test.et", p.To[0].Address)
		assert.Len(t, p.BCC, 1)
		assert.Empty(t, p.CC)

		assert.Equal(t, []string{"bill_generated"}, m.Categories)
		require.Len(t, m.Content, 1)
		assert.Equal(t, "text/plain", m.Content[0].Type)
		assert.Nil(t, m.MailSettings)
	})

	t.Run("qa is sandboxed", func(t *testing.T) {
		svc := NewSendgridService(&core.Config{Env: "QA", AppName: "SmartBill"}, testLogger(t)).(*sendgridService)
		m := svc.build(msg)
		if assert.NotNil(t, m.MailSettings) && assert.NotNil(t, m.MailSettings.SandboxMode) {
			assert.True(t, *m.MailSettings.SandboxMode.Enable)
		}
	})
}
