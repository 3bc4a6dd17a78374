package streaming

import "brandgen-go/internal/upstream"

const maxImageURLLen = 2048

// ImageURLScanner finds the first generated-image link across deltas while
// only retaining a bounded tail of the text.
type ImageURLScanner struct {
	tail string
	url  string
}

// Observe feeds one delta. A match touching the end of the window is held
// back until more text (or Finish) shows where it ends.
func (s *ImageURLScanner) Observe(d Delta) {
	if s.url != "" || d.Err != nil {
		return
	}
	text := d.Text
	if d.Done && d.HasFullText {
		s.tail = ""
		text = d.FullText
	}
	window := s.tail + text
	if loc := upstream.ImageURLPattern.FindStringIndex(window); loc != nil && loc[1] < len(window) {
		s.url = window[loc[0]:loc[1]]
		s.tail = ""
		return
	}
	if len(window) > maxImageURLLen {
		window = window[len(window)-maxImageURLLen:]
	}
	s.tail = window
}

// Finish resolves a match pending at end of stream and returns the URL, if any.
func (s *ImageURLScanner) Finish() string {
	if s.url == "" {
		s.url, _ = upstream.ExtractImageURL(s.tail)
		s.tail = ""
	}
	return s.url
}

// URL returns the link found so far.
func (s *ImageURLScanner) URL() string { return s.url }
