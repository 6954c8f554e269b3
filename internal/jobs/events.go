package jobs

import (
	"strings"

	"github.com/neurosnap/sentences/english"
	log "github.com/sirupsen/logrus"
)

// fragments splits a transcript or summary into sentence-sized pieces for
// incremental event delivery. Speech transcripts are frequently Chinese,
// where the ideographic full stop is the only reliable boundary; Latin text
// goes through the sentence tokenizer instead.
func fragments(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.Contains(text, "。") {
		var out []string
		for _, part := range strings.Split(text, "。") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part+"。")
		}
		return out
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warnf("sentence tokenizer unavailable, emitting one fragment: %v", err)
		return []string{text}
	}

	var out []string
	for _, s := range tokenizer.Tokenize(text) {
		t := strings.TrimSpace(s.Text)
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
