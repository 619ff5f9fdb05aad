package config

const (
	// MaxTopicNameLength is the maximum length of one topic name (one path segment).
	MaxTopicNameLength = 255

	// MaxTopicPathLength is the maximum length of a full slash-delimited topic path.
	MaxTopicPathLength = 500

	// MaxNoteTitleLength is the maximum length for note titles.
	MaxNoteTitleLength = 500

	// MaxAttachmentsPerNote bounds how many attachments one note may carry.
	MaxAttachmentsPerNote = 20

	// DefaultSearchLimit is the result cap when a search does not name one.
	DefaultSearchLimit = 50

	// MaxSearchLimit caps any requested page size.
	MaxSearchLimit = 100
)
