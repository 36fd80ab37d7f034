package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wneessen/go-mail"

	"visascope/internal/config"
	"visascope/internal/submission"
)

// Message is one evaluation result email. Report holds the rendered PDF;
// Documents are the applicant's original uploads, attached alongside it.
type Message struct {
	To             string
	Name           string
	Country        string
	VisaType       string
	Score          int
	Summary        string
	Recommendation string
	Strengths      []string
	Improvements   []string
	EvaluationID   string
	Report         []byte
	Documents      []submission.File
}

// Mailer sends evaluation reports over SMTP.
type Mailer struct {
	cfg config.SMTPConfig
}

// New constructs the mailer from config; the connection is dialed per send.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers the evaluation email. Failures are returned to the caller,
// which treats them as a non-fatal degradation.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	mm.Subject(fmt.Sprintf("Your Visa Evaluation Results - %s %s", msg.Country, msg.VisaType))
	mm.SetBodyString(mail.TypeTextPlain, textBody(msg))
	mm.AddAlternativeString(mail.TypeTextHTML, htmlBody(msg))

	if len(msg.Report) > 0 {
		if err := mm.AttachReader(fmt.Sprintf("Evaluation-Report-%s.pdf", msg.EvaluationID), bytes.NewReader(msg.Report)); err != nil {
			return fmt.Errorf("attach report: %w", err)
		}
	}
	for _, doc := range msg.Documents {
		if err := mm.AttachReader(doc.Name, bytes.NewReader(doc.Content)); err != nil {
			return fmt.Errorf("attach document %q: %w", doc.Name, err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("send evaluation email: %w", err)
	}
	return nil
}

func scoreColorHex(score int) string {
	switch {
	case score >= 80:
		return "#10b981"
	case score >= 60:
		return "#3b82f6"
	case score >= 40:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

func htmlBody(msg Message) string {
	color := scoreColorHex(msg.Score)

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #1f2937; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.score-box { background: ` + color + `20; border-left: 4px solid ` + color + `; padding: 20px; margin: 20px 0; border-radius: 4px; }
.score-number { font-size: 48px; font-weight: bold; color: ` + color + `; text-align: center; }
.score-label { text-align: center; color: #666; margin-top: 10px; }
.section { margin: 20px 0; }
.section-title { font-size: 18px; font-weight: bold; margin-bottom: 10px; }
.item { margin: 8px 0; padding: 8px; background: #f9fafb; border-radius: 4px; }
.strength { border-left: 3px solid #10b981; padding-left: 12px; }
.improvement { border-left: 3px solid #f59e0b; padding-left: 12px; }
.footer { background: #f3f4f6; padding: 20px; border-radius: 0 0 8px 8px; text-align: center; font-size: 12px; color: #666; }
</style></head><body><div class="container">`)

	fmt.Fprintf(&b, `<div class="header"><h1>Global Visa Evaluation Results</h1><p>Evaluation for %s - %s</p></div>`,
		html.EscapeString(msg.Country), html.EscapeString(msg.VisaType))
	fmt.Fprintf(&b, `<div class="score-box"><div class="score-number">%d%%</div><div class="score-label">%s</div></div>`,
		msg.Score, html.EscapeString(msg.Recommendation))
	fmt.Fprintf(&b, `<div class="section"><div class="section-title">Summary</div><p>%s</p></div>`,
		html.EscapeString(msg.Summary))

	b.WriteString(`<div class="section"><div class="section-title">Your Strengths</div>`)
	for _, s := range msg.Strengths {
		fmt.Fprintf(&b, `<div class="item strength">%s</div>`, html.EscapeString(s))
	}
	b.WriteString(`</div><div class="section"><div class="section-title">Areas for Improvement</div>`)
	for _, s := range msg.Improvements {
		fmt.Fprintf(&b, `<div class="item improvement">%s</div>`, html.EscapeString(s))
	}
	b.WriteString(`</div>`)

	fmt.Fprintf(&b, `<div class="section"><p><strong>Application Details:</strong></p><ul><li>Name: %s</li><li>Country: %s</li><li>Visa Type: %s</li><li>Evaluation ID: %s</li></ul></div>`,
		html.EscapeString(msg.Name), html.EscapeString(msg.Country), html.EscapeString(msg.VisaType), html.EscapeString(msg.EvaluationID))

	b.WriteString(`<div class="footer"><p>This is an automated evaluation. For legal advice, please consult with an immigration professional.</p></div></div></body></html>`)
	return b.String()
}

func textBody(msg Message) string {
	var b strings.Builder
	b.WriteString("Global Visa Evaluation Results\n\n")
	fmt.Fprintf(&b, "Evaluation for: %s - %s\n\n", msg.Country, msg.VisaType)
	fmt.Fprintf(&b, "Your Score: %d%%\n%s\n\n", msg.Score, msg.Recommendation)
	fmt.Fprintf(&b, "Summary:\n%s\n\n", msg.Summary)
	b.WriteString("Your Strengths:\n")
	for _, s := range msg.Strengths {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\nAreas for Improvement:\n")
	for _, s := range msg.Improvements {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	fmt.Fprintf(&b, "\nApplication Details:\nName: %s\nCountry: %s\nVisa Type: %s\nEvaluation ID: %s\n",
		msg.Name, msg.Country, msg.VisaType, msg.EvaluationID)
	b.WriteString("\nThis is an automated evaluation. For legal advice, please consult with an immigration professional.\n")
	return b.String()
}
