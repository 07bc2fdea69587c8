package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// MaxTitleLength is the maximum title length in runes.
const MaxTitleLength = 512

// PlaceholderTitle is shown when a document has no title or cannot be found.
const PlaceholderTitle = "제목 없음"

// SourceType is where the document text came from.
type SourceType string

// Source types.
const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
)

// Status is the indexing lifecycle state.
type Status string

// Document lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists allowed status changes. Terminal states may re-enter processing on re-index.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown document status %q", s)
	}
}

// ParseSourceType validates a source type string.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceFile, SourceURL:
		return SourceType(s), nil
	default:
		return "", fmt.Errorf("unknown source type %q", s)
	}
}

// Document is the metadata aggregate for one ingested source.
type Document struct {
	id         string
	title      string
	sourceType SourceType
	status     Status
	url        string
	chunkCount int
	createdAt  time.Time
	updatedAt  time.Time
}

// New validates and creates a pending Document.
func New(id, title string, sourceType SourceType, url string, now time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidDocument)
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256): %w", domain.ErrInvalidDocument)
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID %q has invalid characters: %w", id, domain.ErrInvalidDocument)
	}
	if strings.Contains(id, "_chunk_") {
		return Document{}, fmt.Errorf("document ID must not contain %q: %w", "_chunk_", domain.ErrInvalidDocument)
	}
	if _, err := ParseSourceType(string(sourceType)); err != nil {
		return Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	if sourceType == SourceURL && url == "" {
		return Document{}, fmt.Errorf("url is required for url documents: %w", domain.ErrInvalidDocument)
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > MaxTitleLength {
		title = string(r[:MaxTitleLength])
	}

	return Document{
		id:         id,
		title:      title,
		sourceType: sourceType,
		status:     StatusPending,
		url:        url,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title string, sourceType SourceType, status Status, url string,
	chunkCount int, createdAt, updatedAt time.Time,
) Document {
	return Document{
		id: id, title: title, sourceType: sourceType, status: status, url: url,
		chunkCount: chunkCount, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the title as stored, possibly empty.
func (d *Document) Title() string { return d.title }

// DisplayTitle returns the title or the placeholder when it is empty.
func (d *Document) DisplayTitle() string {
	if d.title == "" {
		return PlaceholderTitle
	}
	return d.title
}

// SourceType returns where the document came from.
func (d *Document) SourceType() SourceType { return d.sourceType }

// Status returns the lifecycle state.
func (d *Document) Status() Status { return d.status }

// URL returns the source URL, empty for files.
func (d *Document) URL() string { return d.url }

// ChunkCount returns the number of stored chunks.
func (d *Document) ChunkCount() int { return d.chunkCount }

// CreatedAt returns the creation time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification time.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// Transition moves the document to the next lifecycle state.
func (d *Document) Transition(to Status, now time.Time) error {
	if !CanTransition(d.status, to) {
		return fmt.Errorf("%s -> %s: %w", d.status, to, domain.ErrInvalidStatusTransition)
	}
	d.status = to
	d.updatedAt = now
	return nil
}

// SetChunkCount records how many chunks the last indexing run stored.
func (d *Document) SetChunkCount(n int) { d.chunkCount = n }
