package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template ids understood by Render.
const (
	TemplateWelcome              = "welcome"
	TemplatePurchaseConfirmation = "purchase_confirmation"
	TemplateProPlanActivated     = "pro_plan_activated"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[string]mailTemplate{
	TemplateWelcome: {
		subject: "Welcome to Lernhub",
		body: template.Must(template.New(TemplateWelcome).Parse(`<p>Hi {{or .name "there"}},</p>
<p>thanks for joining Lernhub. Start learning at <a href="{{.url}}">{{.url}}</a>.</p>`)),
	},
	TemplatePurchaseConfirmation: {
		subject: "Purchase Confirmed",
		body: template.Must(template.New(TemplatePurchaseConfirmation).Parse(`<p>Hi {{or .customer_name "there"}},</p>
<p>your purchase of <strong>{{.course_title}}</strong> ({{printf "%.2f" .purchase_amount}}) is confirmed.</p>
{{if .course_image}}<p><img src="{{.course_image}}" alt="{{.course_title}}"></p>{{end}}
<p><a href="{{.course_url}}">Open the course</a></p>`)),
	},
	TemplateProPlanActivated: {
		subject: "Welcome to the Lernhub Pro Plan",
		body: template.Must(template.New(TemplateProPlanActivated).Parse(`<p>Hi {{or .name "there"}},</p>
<p>your Pro Plan ({{.plan_type}}) is active{{if .current_period_end}} until {{.current_period_end}}{{end}}.</p>
<p>All courses are unlocked: <a href="{{.url}}">{{.url}}</a></p>`)),
	},
}

// Render returns subject and HTML body for a template id.
func Render(templateID string, data map[string]interface{}) (string, string, error) {
	t, ok := templates[templateID]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", templateID)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", templateID, err)
	}
	return t.subject, buf.String(), nil
}
