package services

import "strings"

const replyPromptTemplate = `You are an AI assistant that composes professional and friendly email replies. Read the email below and draft an appropriate response.

Email:
{email_body}

Response:`

// BuildPrompt places the email body into the reply prompt
func BuildPrompt(body string) string {
	return strings.Replace(replyPromptTemplate, "{email_body}", body, 1)
}
