package notify

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

var textTemplates = template.Must(template.New("text").Parse(`
{{define "signature_request"}}Dear {{.ReceiverName}},

{{.SenderName}} has asked you to review and acknowledge the {{.Title}}.

Purpose: {{.Purpose}}

Sign Document: {{.Link}}

Best regards,
{{.SenderName}}
{{.SenderEmail}}{{end}}
{{define "quiz_link"}}Dear {{.ReceiverName}},

Thank you for acknowledging the {{.Title}}.

To complete the signature process, please take a short quiz to verify your understanding:

Take Quiz: {{.Link}}

This quiz contains 3 questions and all must be answered correctly.{{end}}
{{define "signature_completed"}}Congratulations {{.ReceiverName}},

You have successfully signed and verified your understanding of:
{{.Title}}

Your signature has been recorded and confirmed.{{end}}
{{define "signature_completed_notification"}}Hello {{.SenderName}},

Good news! {{.ReceiverName}} ({{.ReceiverEmail}}) has successfully:
- Signed the document: {{.Title}}
- Passed the knowledge verification quiz

The signature process is now complete.

View all signatures at: {{.AppURL}}{{end}}
{{define "quiz_failed"}}Hello {{.ReceiverName}},

Unfortunately, you did not pass the verification quiz for:
{{.Title}}

Please review the document again and retake the quiz.

Try again at: {{.Link}}{{end}}
`))

var htmlTemplates = htmltemplate.Must(htmltemplate.New("html").Parse(`
{{define "signature_request"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<p>Dear {{.ReceiverName}},</p>
<p>{{.SenderName}} has asked you to review and acknowledge the <strong>{{.Title}}</strong>.</p>
<p><strong>Purpose:</strong><br>{{.Purpose}}</p>
<div style="margin: 30px 0; text-align: center;">
<a href="{{.Link}}" style="display: inline-block; padding: 14px 28px; background-color: #2563eb; color: white; text-decoration: none; border-radius: 6px; font-weight: 600;">Sign Document</a>
</div>
<p style="color: #666; font-size: 14px;">If the button above doesn't work, copy this link into your browser:<br><a href="{{.Link}}">{{.Link}}</a></p>
<p>Best regards,<br><strong>{{.SenderName}}</strong><br>{{.SenderEmail}}</p>
</div>{{end}}
{{define "quiz_link"}}<p>Dear {{.ReceiverName}},</p>
<p>Thank you for acknowledging the <strong>{{.Title}}</strong>.</p>
<p>To complete the signature process, please take a short quiz to verify your understanding of the document.</p>
<p style="margin-top: 20px;"><a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #8b5cf6; color: white; text-decoration: none; border-radius: 6px; font-weight: 600;">Take Quiz</a></p>
<p style="color: #666; font-size: 12px;">This quiz contains 3 questions and all must be answered correctly.</p>{{end}}
{{define "signature_completed"}}<div style="text-align: center; padding: 20px;">
<h2 style="color: #10b981;">Success!</h2>
<p>Congratulations {{.ReceiverName}},</p>
<p>You have successfully signed and verified your understanding of:</p>
<p><strong>{{.Title}}</strong></p>
<p style="margin-top: 20px; color: #666;">Your signature has been recorded and confirmed.</p>
</div>{{end}}
{{define "signature_completed_notification"}}<p>Hello {{.SenderName}},</p>
<p>Good news! <strong>{{.ReceiverName}}</strong> ({{.ReceiverEmail}}) has successfully:</p>
<ul>
<li>Signed the document: <strong>{{.Title}}</strong></li>
<li>Passed the knowledge verification quiz</li>
</ul>
<p>The signature process is now complete.</p>
<p style="color: #666; font-size: 12px; margin-top: 20px;">View all signatures at: <a href="{{.AppURL}}">{{.AppURL}}</a></p>{{end}}
{{define "quiz_failed"}}<div style="text-align: center; padding: 20px;">
<h2 style="color: #ef4444;">Quiz Not Passed</h2>
<p>Hello {{.ReceiverName}},</p>
<p>Unfortunately, you did not pass the verification quiz for:</p>
<p><strong>{{.Title}}</strong></p>
<p style="margin-top: 20px;">Please review the document again and retake the quiz.</p>
<p style="margin-top: 20px;"><a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #ef4444; color: white; text-decoration: none; border-radius: 6px; font-weight: 600;">Retake Quiz</a></p>
</div>{{end}}
`))

type mailData struct {
	AppURL        string
	Title         string
	Purpose       string
	Link          string
	SenderName    string
	SenderEmail   string
	ReceiverName  string
	ReceiverEmail string
}

// Composer renders workflow events. AppURL has no trailing slash.
type Composer struct {
	AppURL string
	Now    func() time.Time
}

func NewComposer(appURL string) *Composer {
	return &Composer{AppURL: appURL, Now: time.Now}
}

func (c *Composer) SigningLink(trackingID string) string { return c.AppURL + "/sign/" + trackingID }

func (c *Composer) QuizURL(quizID string) string { return c.AppURL + "/quiz/" + quizID }

func (c *Composer) data(sig *models.Signature, link string) mailData {
	return mailData{
		AppURL:        c.AppURL,
		Title:         sig.DocumentTitle,
		Purpose:       sig.Purpose,
		Link:          link,
		SenderName:    sig.SenderName,
		SenderEmail:   sig.SenderEmail,
		ReceiverName:  DisplayName(sig.ReceiverEmail),
		ReceiverEmail: sig.ReceiverEmail,
	}
}

func (c *Composer) render(ev *Event, name string, d mailData) error {
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name, d); err != nil {
		return err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name, d); err != nil {
		return err
	}
	ev.Body = text.String()
	ev.BodyHTML = html.String()
	ev.Timestamp = c.Now().UTC()
	return nil
}

func (c *Composer) SignatureRequest(sig *models.Signature) (Event, error) {
	link := c.SigningLink(sig.TrackingID)
	ev := Event{
		EventType:   SignatureRequest,
		To:          sig.ReceiverEmail,
		FromName:    sig.SenderName,
		FromEmail:   sig.SenderEmail,
		Subject:     "Action Required: " + sig.DocumentTitle,
		SigningLink: link,
		TrackingID:  sig.TrackingID,
	}
	return ev, c.render(&ev, string(SignatureRequest), c.data(sig, link))
}

func (c *Composer) QuizLink(sig *models.Signature, quizID string) (Event, error) {
	link := c.QuizURL(quizID)
	ev := Event{
		EventType:  QuizLink,
		To:         sig.ReceiverEmail,
		Subject:    "Quiz Required: " + sig.DocumentTitle,
		QuizLink:   link,
		QuizID:     quizID,
		TrackingID: sig.TrackingID,
	}
	return ev, c.render(&ev, string(QuizLink), c.data(sig, link))
}

// Completed returns the receiver confirmation followed by the sender notice.
func (c *Composer) Completed(sig *models.Signature) ([]Event, error) {
	d := c.data(sig, "")
	receiver := Event{
		EventType:  SignatureCompleted,
		To:         sig.ReceiverEmail,
		Subject:    "Successfully Signed: " + sig.DocumentTitle,
		TrackingID: sig.TrackingID,
	}
	if err := c.render(&receiver, string(SignatureCompleted), d); err != nil {
		return nil, err
	}
	sender := Event{
		EventType:  SignatureCompletedNotification,
		To:         sig.SenderEmail,
		Subject:    "Document Signed: " + sig.DocumentTitle,
		TrackingID: sig.TrackingID,
	}
	if err := c.render(&sender, string(SignatureCompletedNotification), d); err != nil {
		return nil, err
	}
	return []Event{receiver, sender}, nil
}

func (c *Composer) QuizFailed(sig *models.Signature, quizID string) (Event, error) {
	link := c.QuizURL(quizID)
	ev := Event{
		EventType:  QuizFailed,
		To:         sig.ReceiverEmail,
		Subject:    "Quiz Failed: " + sig.DocumentTitle,
		QuizLink:   link,
		QuizID:     quizID,
		TrackingID: sig.TrackingID,
	}
	return ev, c.render(&ev, string(QuizFailed), c.data(sig, link))
}

func (c *Composer) ScheduledCleanup(result map[string]any, loc *time.Location) Event {
	return Event{
		EventType: ScheduledCleanup,
		Message:   "Nightly data cleanup completed",
		Data:      result,
		Timestamp: c.Now().In(loc),
	}
}
