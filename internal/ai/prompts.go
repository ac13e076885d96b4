package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const candidateSummaryLimit = 300

// RankPrompt builds the article selection prompt. The response contract is
// strict JSON so every provider can share one parser.
func RankPrompt(candidates []Candidate, count int, interests []string) string {
	var b strings.Builder

	b.WriteString("You are a news editor assembling an audio briefing.\n")
	fmt.Fprintf(&b, "Pick the %d most briefing-worthy articles from the candidates below.\n", count)
	b.WriteString("Favor significance, variety of topics and complementary coverage. Avoid near-identical stories.\n")
	if len(interests) > 0 {
		fmt.Fprintf(&b, "The listener cares about: %s.\n", strings.Join(interests, ", "))
	}

	b.WriteString("\nCANDIDATES:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s source=%q score=%.0f title=%q", c.ID, c.Source, c.Score, c.Title)
		if len(c.Topics) > 0 {
			fmt.Fprintf(&b, " topics=%s", strings.Join(c.Topics, ","))
		}
		if s := truncate(c.Summary, candidateSummaryLimit); s != "" {
			fmt.Fprintf(&b, "\n  summary: %s", s)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Respond with JSON only, no prose, using exactly this shape:
{
  "selected": [{"id": "<candidate id>", "reason": "<one sentence>", "priority": 1}],
  "rejected": ["<candidate id>"],
  "summary": "<one sentence on the overall selection>"
}
"selected" must contain at most %d entries ordered by priority (1 = lead story).
Use only ids from the candidate list.`, count)

	return b.String()
}

// ScriptPrompt builds the briefing script prompt.
func ScriptPrompt(req ScriptRequest) string {
	var b strings.Builder

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	fmt.Fprintf(&b, "Write a spoken news briefing script in language %q, roughly %d minutes when read aloud at a relaxed pace.\n", lang, req.TargetMinutes)
	b.WriteString("Open with a one-line greeting, cover each story as flowing prose with natural transitions, and close with a short sign-off.\n")
	b.WriteString("Plain text only. No markdown, no headers, no stage directions, nothing a narrator would not say out loud.\n")

	b.WriteString("\nSTORIES:\n")
	for i, a := range req.Articles {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, a.Title, a.SourceName)
		body := a.Summary
		if body == "" {
			body = a.Content
		}
		if body = truncate(body, 1200); body != "" {
			fmt.Fprintf(&b, "%s\n", body)
		}
	}

	return b.String()
}

// StripJSONFences removes a ```json ... ``` wrapper that chat models love to
// add despite being told not to.
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}
