package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestLeadNotifier_SendsAdminAndConfirmation(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewLeadNotifier(sender, "", nil)

	err := notifier.Notify(context.Background(), NewLeadNotification{
		LeadName:        "Ana Ruiz",
		Email:           "ana@example.com",
		Phone:           "+15125550100",
		SelectedPackage: "Growth",
		ProjectDetails:  "Need a new site",
		Source:          "pricing_page",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)

	admin := sender.sent[0]
	assert.Equal(t, "rory@royscompany.com", admin.To)
	assert.Equal(t, "New Growth Web Design Lead: Ana Ruiz", admin.Subject)
	assert.Equal(t, "ana@example.com", admin.ReplyTo)
	assert.Contains(t, admin.HTML, `href="tel:&#43;15125550100"`)
	assert.Contains(t, admin.HTML, "Need a new site")
	assert.NotContains(t, admin.HTML, "Business</td>")

	confirm := sender.sent[1]
	assert.Equal(t, "ana@example.com", confirm.To)
	assert.Contains(t, confirm.HTML, "Thanks for reaching out, Ana!")
}

func TestLeadNotifier_EscapesUserInput(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewLeadNotifier(sender, "ops@royscompany.com", nil)

	err := notifier.Notify(context.Background(), NewLeadNotification{
		LeadName:        `<script>alert(1)</script> Eve`,
		Email:           "eve@example.com",
		SelectedPackage: "foundation",
		ProjectDetails:  `<img src=x onerror=alert(1)>`,
	})
	require.NoError(t, err)

	for _, msg := range sender.sent {
		assert.NotContains(t, msg.HTML, "<script>")
		assert.NotContains(t, msg.HTML, "<img")
	}
	assert.Contains(t, sender.sent[0].HTML, "&lt;script&gt;")
}

func TestLeadNotifier_Errors(t *testing.T) {
	assert.ErrorIs(t, NewLeadNotifier(nil, "", nil).Notify(context.Background(), NewLeadNotification{}), ErrEmailNotConfigured)

	sender := &recordingSender{}
	err := NewLeadNotifier(sender, "", nil).Notify(context.Background(), NewLeadNotification{LeadName: "A", Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Empty(t, sender.sent)

	failing := &recordingSender{err: errors.New("quota exceeded")}
	err = NewLeadNotifier(failing, "", nil).Notify(context.Background(), NewLeadNotification{LeadName: "A", Email: "a@b.co", SelectedPackage: "growth"})
	assert.ErrorContains(t, err, "admin email")
}

func TestNotifyNewLeadHandler(t *testing.T) {
	tests := []struct {
		name       string
		sender     EmailSender
		body       string
		wantStatus int
		wantBody   string
	}{
		{"success", &recordingSender{}, `{"leadName":"Ana","email":"ana@example.com","selectedPackage":"growth","source":"site"}`, http.StatusOK, `{"success":true}`},
		{"missing fields", &recordingSender{}, `{"leadName":"Ana"}`, http.StatusBadRequest, `{"error":"Missing required fields"}`},
		{"not configured", nil, `{"leadName":"Ana","email":"a@b.co","selectedPackage":"growth"}`, http.StatusInternalServerError, `{"error":"Email service not configured"}`},
		{"provider failure", &recordingSender{err: errors.New("boom")}, `{"leadName":"Ana","email":"a@b.co","selectedPackage":"growth"}`, http.StatusInternalServerError, `{"error":"Failed to send notification"}`},
		{"bad json", &recordingSender{}, `nope`, http.StatusBadRequest, `{"error":"Invalid request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(nil, NewLeadNotifier(tt.sender, "", nil), nil)
			rec := httptest.NewRecorder()
			h.NotifyNewLead(rec, httptest.NewRequest(http.MethodPost, "/notify/new-lead", strings.NewReader(tt.body)))
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestNewLeadNotificationJSON(t *testing.T) {
	var n NewLeadNotification
	require.NoError(t, json.Unmarshal([]byte(`{"leadName":"Ana Maria Ruiz","businessName":"Ruiz Co"}`), &n))
	assert.Equal(t, "Ruiz Co", n.BusinessName)
	assert.Equal(t, "Ana", n.FirstName())
}
