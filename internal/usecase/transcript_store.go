package usecase

import "strings"

const transcriptSeparator = "\n\n"

// TranscriptStore accumulates finalized utterances. It only ever grows.
type TranscriptStore struct {
	entries []string
}

// Append adds text unless it is blank. It reports whether the store changed.
func (s *TranscriptStore) Append(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.entries = append(s.entries, text)
	return true
}

// Text renders the transcript with a blank line between utterances.
func (s *TranscriptStore) Text() string {
	return strings.Join(s.entries, transcriptSeparator)
}

func (s *TranscriptStore) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *TranscriptStore) Len() int {
	return len(s.entries)
}
