package templates

var builtins = []Template{
	{
		ID:      "welcome",
		Name:    "Welcome Email",
		Subject: "Welcome to our service!",
		Body: `Hello {{name}},

Welcome to our service! We're excited to have you on board.

Getting started is easy:
1. Complete your profile
2. Explore our features
3. Reach out if you need help

Best regards,
The Team`,
		Category:  "onboarding",
		Tags:      []string{"welcome", "onboarding"},
		IsDefault: true,
	},
	{
		ID:      "followup",
		Name:    "Follow-up Email",
		Subject: "Following up on {{subject}}",
		Body: `Hi {{name}},

I wanted to follow up on our previous conversation about {{subject}}.

{{followup_message}}

Please let me know if you have any questions or if there's anything else I can help you with.

Best regards,
{{sender_name}}`,
		Category:  "business",
		Tags:      []string{"followup", "business"},
		IsDefault: true,
	},
	{
		ID:      "announcement",
		Name:    "Announcement",
		Subject: "Important Update: {{announcement_title}}",
		Body: `Dear {{name}},

We have an important announcement to share with you.

**{{announcement_title}}**

{{announcement_details}}

If you have any questions, please don't hesitate to contact us.

Thank you,
{{company_name}}`,
		Category:  "announcement",
		Tags:      []string{"announcement", "update"},
		IsDefault: true,
	},
}
