package session

import (
	"strings"

	"pagetalk/internal/fetch"
	"pagetalk/internal/providers"
)

const ignoreAdsClause = "Also, when analyzing the content, ignore any advertisements, " +
	"promotional material, or unrelated links that may be present. " +
	"Focus solely on the main content relevant to the topic at hand."

const webpageSystemPrompt = "You are an intelligent assistant analyzing the contents of a webpage. " +
	"Use only the provided webpage text as your context. " +
	"Provide clear, concise, and accurate answers focused on the content. " +
	"When appropriate, organize information into bullet lists for clarity. " +
	"Avoid speculation beyond the text and maintain a helpful tone. " + ignoreAdsClause

const transcriptSystemPrompt = "You are an assistant discussing a video using only the provided " +
	"spoken-word transcript as your context. Focus your responses on the video's content based on " +
	"this transcript. Keep your answers clear, concise, and informative. Use bullet lists when it " +
	"helps to organize key points or steps. Avoid making assumptions beyond the transcript. " + ignoreAdsClause

const summaryInstruction = "Please provide a brief summary of the provided content. " +
	"Keep the summary concise and to the point."

type promptInput struct {
	SourceKind  fetch.Kind
	SourceURL   string
	Background  string
	History     []Turn
	Question    string
	BudgetWords int
}

// assemblePrompt builds the outgoing message sequence: a source-specific
// system message, the loaded content as background, the history oldest first,
// and the in-flight question last. When the total word count exceeds the
// budget it drops history turns oldest first; the background and the question
// are never dropped, an exact budget match is not trimmed, and an over-budget
// background with nothing left to drop passes through unmodified. Returns the
// messages and how many history turns were dropped.
func assemblePrompt(in promptInput) ([]providers.Message, int) {
	system := systemPromptFor(in.SourceKind)
	background := backgroundMessage(in.SourceKind, in.SourceURL, in.Background)

	fixed := wordCount(system) + wordCount(background) + wordCount(in.Question)

	included := in.History
	dropped := 0
	total := fixed
	for _, t := range included {
		total += wordCount(t.Text)
	}
	for total > in.BudgetWords && len(included) > 0 {
		total -= wordCount(included[0].Text)
		included = included[1:]
		dropped++
	}

	msgs := make([]providers.Message, 0, len(included)+3)
	msgs = append(msgs,
		providers.Message{Role: providers.RoleSystem, Content: system},
		providers.Message{Role: providers.RoleUser, Content: background},
	)
	for _, t := range included {
		msgs = append(msgs, providers.Message{Role: string(t.Role), Content: t.Text})
	}
	msgs = append(msgs, providers.Message{Role: providers.RoleUser, Content: in.Question})
	return msgs, dropped
}

func systemPromptFor(kind fetch.Kind) string {
	if kind == fetch.KindVideoTranscript {
		return transcriptSystemPrompt
	}
	return webpageSystemPrompt
}

func backgroundMessage(kind fetch.Kind, url, content string) string {
	if kind == fetch.KindVideoTranscript {
		return "Here is the video transcript (from " + url + "):\n" + content
	}
	return "Here is the webpage content (from " + url + "):\n" + content
}

func chatRequest(model string, msgs []providers.Message, contextWords int) providers.ChatRequest {
	return providers.ChatRequest{Model: model, Messages: msgs, ContextWindow: contextWords}
}

// wordCount is the documented token proxy: whitespace-separated fields.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
