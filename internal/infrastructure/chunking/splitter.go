package chunking

import "strings"

// Splitter cuts speech transcripts into overlapping windows. Cuts prefer a
// paragraph break, then a sentence end, near the target size so retrieved
// passages keep their rhetorical flow instead of stopping mid-sentence.
type Splitter struct {
	targetSize int
	overlap    int
}

func NewSplitter(targetSize, overlap int) *Splitter {
	if targetSize <= 0 {
		targetSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= targetSize {
		overlap = targetSize / 4
	}
	return &Splitter{targetSize: targetSize, overlap: overlap}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.targetSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.targetSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// cutPoint searches backwards within the last quarter of the window for a
// paragraph break, then for a sentence end. A hard cut at the size limit is
// the last resort.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	floor := limit - s.targetSize/4
	if floor <= start {
		floor = start + 1
	}
	for i := limit; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			return i
		}
	}
	return limit
}
