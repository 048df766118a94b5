package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/royscompany/royscompany-api/pkg/logging"
)

var (
	// ErrMissingFields is returned when leadName, email or selectedPackage is empty.
	ErrMissingFields = errors.New("notify: missing required fields")
	// ErrEmailNotConfigured is returned when no email provider is available.
	ErrEmailNotConfigured = errors.New("notify: email service not configured")
)

// NewLeadNotification is the web-design inquiry sent by the site after a lead
// picks a package.
type NewLeadNotification struct {
	LeadName        string `json:"leadName"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	BusinessName    string `json:"businessName,omitempty"`
	SelectedPackage string `json:"selectedPackage"`
	ProjectDetails  string `json:"projectDetails,omitempty"`
	Source          string `json:"source"`
}

// Validate checks the required fields.
func (n NewLeadNotification) Validate() error {
	if strings.TrimSpace(n.LeadName) == "" || strings.TrimSpace(n.Email) == "" || strings.TrimSpace(n.SelectedPackage) == "" {
		return ErrMissingFields
	}
	return nil
}

// FirstName is the greeting used in the confirmation email.
func (n NewLeadNotification) FirstName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(n.LeadName), " ")
	return first
}

var adminLeadTemplate = template.Must(template.New("admin").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #1a1a1a; border-bottom: 2px solid #f59e0b; padding-bottom: 10px;">New Web Design Lead</h1>
  <div style="background: #fef3c7; border-radius: 8px; padding: 16px; margin: 20px 0;">
    <strong style="color: #92400e;">Package Selected:</strong>
    <span style="color: #1a1a1a; font-size: 18px; font-weight: bold;">{{.SelectedPackage}}</span>
  </div>
  <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
    <tr><td style="padding: 12px; font-weight: bold; color: #6b7280; width: 140px;">Name</td><td style="padding: 12px;">{{.LeadName}}</td></tr>
    <tr><td style="padding: 12px; font-weight: bold; color: #6b7280;">Email</td><td style="padding: 12px;"><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
    {{- if .Phone}}
    <tr><td style="padding: 12px; font-weight: bold; color: #6b7280;">Phone</td><td style="padding: 12px;"><a href="tel:{{.Phone}}">{{.Phone}}</a></td></tr>
    {{- end}}
    {{- if .BusinessName}}
    <tr><td style="padding: 12px; font-weight: bold; color: #6b7280;">Business</td><td style="padding: 12px;">{{.BusinessName}}</td></tr>
    {{- end}}
    <tr><td style="padding: 12px; font-weight: bold; color: #6b7280;">Source</td><td style="padding: 12px;">{{.Source}}</td></tr>
  </table>
  {{- if .ProjectDetails}}
  <h3 style="color: #374151;">Project Details</h3>
  <div style="background: #f9fafb; border-radius: 8px; padding: 16px; color: #4b5563; line-height: 1.6;">{{.ProjectDetails}}</div>
  {{- end}}
  <p style="color: #9ca3af; font-size: 12px; margin-top: 30px; text-align: center;">Sent from Roy's Company Lead System</p>
</div>`))

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #1a1a1a;">Thanks for reaching out, {{.FirstName}}!</h1>
  <p style="color: #4b5563; line-height: 1.6; font-size: 16px;">I received your inquiry about our <strong>{{.SelectedPackage}}</strong> web design package and I'm excited to learn more about your project.</p>
  <p style="color: #4b5563; line-height: 1.6; font-size: 16px;">I'll review your requirements and get back to you within <strong>24 hours</strong> with:</p>
  <ul style="color: #4b5563; line-height: 1.8;">
    <li>A detailed proposal tailored to your needs</li>
    <li>Timeline and next steps</li>
    <li>Answers to any questions you might have</li>
  </ul>
  <p style="color: #1a1a1a; margin-top: 30px;">Best,<br><strong>Rory Ulloa</strong><br><span style="color: #6b7280;">Roy's Company</span></p>
</div>`))

// LeadNotifier emails the team about a new inquiry and confirms receipt to the lead.
type LeadNotifier struct {
	email   EmailSender
	adminTo string
	logger  *logging.Logger
}

// NewLeadNotifier creates a notifier. A nil sender makes every call fail with
// ErrEmailNotConfigured.
func NewLeadNotifier(email EmailSender, adminTo string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if adminTo == "" {
		adminTo = "rory@royscompany.com"
	}
	return &LeadNotifier{email: email, adminTo: adminTo, logger: logger}
}

// Notify sends the admin alert first, then the lead confirmation.
func (n *LeadNotifier) Notify(ctx context.Context, lead NewLeadNotification) error {
	if n.email == nil {
		return ErrEmailNotConfigured
	}
	if err := lead.Validate(); err != nil {
		return err
	}

	adminHTML, err := render(adminLeadTemplate, lead)
	if err != nil {
		return err
	}
	if err := n.email.Send(ctx, EmailMessage{
		To:       n.adminTo,
		Subject:  fmt.Sprintf("New %s Web Design Lead: %s", lead.SelectedPackage, lead.LeadName),
		Body:     adminText(lead),
		HTML:     adminHTML,
		FromName: "Lead Notifications",
		ReplyTo:  lead.Email,
	}); err != nil {
		return fmt.Errorf("notify: admin email: %w", err)
	}

	confirmHTML, err := render(confirmationTemplate, lead)
	if err != nil {
		return err
	}
	if err := n.email.Send(ctx, EmailMessage{
		To:       lead.Email,
		ToName:   lead.LeadName,
		Subject:  "Thanks for your interest in our Web Design services!",
		Body:     fmt.Sprintf("Thanks for reaching out, %s! We'll get back to you within 24 hours.", lead.FirstName()),
		HTML:     confirmHTML,
		FromName: "Rory Ulloa",
	}); err != nil {
		return fmt.Errorf("notify: confirmation email: %w", err)
	}

	n.logger.Info("new lead notifications sent", "package", lead.SelectedPackage, "source", lead.Source)
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func adminText(l NewLeadNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s lead\nName: %s\nEmail: %s\n", l.SelectedPackage, l.LeadName, l.Email)
	if l.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", l.Phone)
	}
	if l.BusinessName != "" {
		fmt.Fprintf(&b, "Business: %s\n", l.BusinessName)
	}
	fmt.Fprintf(&b, "Source: %s\n", l.Source)
	if l.ProjectDetails != "" {
		fmt.Fprintf(&b, "\n%s\n", l.ProjectDetails)
	}
	return b.String()
}
