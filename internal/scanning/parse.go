package scanning

import (
	"strings"
)

// noTextAnswers are replies a model gives when it finds nothing to read
var noTextAnswers = []string{"NO_TEXT", "no text", "none"}

// cleanTranscript tidies model output with cleanText and turns the model's
// "nothing to read" answers into ErrNoText.
func cleanTranscript(text string) (string, error) {
	text, err := cleanText(text)
	if err != nil {
		return "", err
	}
	for _, answer := range noTextAnswers {
		if strings.EqualFold(text, answer) {
			return "", ErrNoText
		}
	}
	return text, nil
}

// cleanText removes markdown fences, unifies line endings, trims trailing
// spaces and collapses runs of blank lines. Empty output is ErrNoText.
func cleanText(text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	// Remove opening and closing markdown code blocks
	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = ""
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	var (
		out   []string
		blank bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	text = strings.TrimSpace(strings.Join(out, "\n"))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
