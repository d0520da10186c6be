package generator

// Summary is the generated meeting minutes. Markdown is never empty.
type Summary struct {
	Markdown string
	// Title is the first level-one heading, if any.
	Title string
	// Digest is the first body paragraph, used for short previews.
	Digest string
}
