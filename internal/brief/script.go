package brief

import (
	"fmt"
	"strings"
	"time"

	"dailybrief/internal/model"
)

// Spoken-word pace used for duration estimates.
const wordsPerMinute = 150

// EstimateDuration converts a script to its spoken length in seconds.
func EstimateDuration(script string) int {
	words := len(strings.Fields(script))
	return words * 60 / wordsPerMinute
}

// fallbackScript assembles a plain template narration from the articles.
// It reads stilted next to a model-written script but always works.
func fallbackScript(articles []model.Article, briefingType string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Good day. Here is your %s briefing for %s, with %d %s.\n\n",
		briefingType, now.Format("Monday, January 2"), len(articles), plural(len(articles), "story", "stories"))

	for i, a := range articles {
		fmt.Fprintf(&b, "Story %d, from %s. %s.", i+1, a.SourceName, strings.TrimSuffix(a.Title, "."))
		if a.Summary != "" {
			b.WriteString(" ")
			b.WriteString(ensureSentence(a.Summary))
		}
		b.WriteString("\n\n")
	}

	b.WriteString("That is all for this briefing. Thanks for listening.\n")
	return b.String()
}

// ensureScriptFraming adds an opening greeting and closing sign-off when the
// model forgot them.
func ensureScriptFraming(script, briefingType string, now time.Time) string {
	script = strings.TrimSpace(script)
	if script == "" {
		return script
	}

	lower := strings.ToLower(script)
	first := lower
	if idx := strings.IndexByte(lower, '\n'); idx > 0 {
		first = lower[:idx]
	}
	if !strings.Contains(first, "good") && !strings.Contains(first, "welcome") && !strings.Contains(first, "hello") {
		script = fmt.Sprintf("Good day, and welcome to your %s briefing for %s.\n\n%s",
			briefingType, now.Format("Monday, January 2"), script)
		lower = strings.ToLower(script)
	}

	tail := lower
	if len(tail) > 200 {
		tail = tail[len(tail)-200:]
	}
	if !strings.Contains(tail, "thank") && !strings.Contains(tail, "that is all") && !strings.Contains(tail, "that's all") {
		script += "\n\nThat is all for this briefing. Thanks for listening."
	}

	return script
}

func ensureSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
