// Package piece loads the published pieces of the archive and splits them
// into retrieval fragments.
package piece

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Mood is one of the fixed tone tags a piece carries.
type Mood string

// Valid moods.
const (
	MoodContemplative Mood = "contemplative"
	MoodAnalytical    Mood = "analytical"
	MoodExploratory   Mood = "exploratory"
	MoodCritical      Mood = "critical"
)

// ValidMoods lists the accepted mood values in display order.
var ValidMoods = []Mood{MoodContemplative, MoodAnalytical, MoodExploratory, MoodCritical}

// WordsPerMinute is the reading speed used for read-time estimates.
const WordsPerMinute = 220

// Piece is one published piece of writing.
type Piece struct {
	// Identity
	ID   int    `json:"id"`   // Author-assigned, unique across the corpus
	Slug string `json:"slug"` // Filename without .md

	// Frontmatter
	Title   string `json:"title"`
	Date    string `json:"date"` // As written, e.g. 2025.01.02
	Excerpt string `json:"excerpt"`
	Mood    []Mood `json:"mood"`
	Pinned  bool   `json:"pinned"`

	// Body and derived fields
	Content         string    `json:"content,omitempty"`
	WordCount       int       `json:"wordCount"`
	PublishedAt     time.Time `json:"publishedAt"`
	ReadTime        string    `json:"readTime"`
	ReadTimeMinutes int       `json:"readTimeMinutes"`
}

// Parse validates a raw markdown file and converts it into a Piece.
// Every validation failure is returned as an *InvalidDocumentError.
func Parse(raw []byte, filename string) (Piece, error) {
	data, body, err := SplitMarkdown(string(raw), filename)
	if err != nil {
		return Piece{}, err
	}

	id, err := parseID(data, filename)
	if err != nil {
		return Piece{}, err
	}

	title, err := requireString(data, "title", filename)
	if err != nil {
		return Piece{}, err
	}
	date, err := requireString(data, "date", filename)
	if err != nil {
		return Piece{}, err
	}
	excerpt, err := requireString(data, "excerpt", filename)
	if err != nil {
		return Piece{}, err
	}

	moods, err := normalizeMoods(data, filename)
	if err != nil {
		return Piece{}, err
	}

	publishedAt, err := ParseDate(date)
	if err != nil {
		return Piece{}, &InvalidDocumentError{
			File:   filename,
			Field:  "date",
			Reason: "expected format YYYY.MM.DD",
		}
	}

	content := strings.TrimSpace(body)
	words := CountWords(content)
	minutes := ReadTimeMinutes(words)

	return Piece{
		ID:              id,
		Slug:            SlugFromFilename(filename),
		Title:           title,
		Date:            date,
		Excerpt:         excerpt,
		Mood:            moods,
		Pinned:          parseBool(data.Scalar("pinned")),
		Content:         content,
		WordCount:       words,
		PublishedAt:     publishedAt,
		ReadTime:        fmt.Sprintf("%d min", minutes),
		ReadTimeMinutes: minutes,
	}, nil
}

// SlugFromFilename strips the .md extension (case-insensitive).
func SlugFromFilename(filename string) string {
	if len(filename) >= 3 && strings.EqualFold(filename[len(filename)-3:], ".md") {
		return filename[:len(filename)-3]
	}
	return filename
}

// ParseDate accepts YYYY.MM.DD or YYYY-MM-DD and returns UTC midnight.
func ParseDate(value string) (time.Time, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ".", "-")
	return time.Parse("2006-01-02", normalized)
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadTimeMinutes rounds up at WordsPerMinute, never below one minute.
func ReadTimeMinutes(words int) int {
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// HasMood reports whether the piece carries the given mood.
func (p Piece) HasMood(m Mood) bool {
	for _, mood := range p.Mood {
		if mood == m {
			return true
		}
	}
	return false
}

// Summary returns a copy of the piece without its body, for listings.
func (p Piece) Summary() Piece {
	p.Content = ""
	return p
}

// parseID accepts any finite number with an integral value, so "7", "7.0"
// and "7e0" all name piece 7. Fractional ids are rejected since fragment
// ids embed the piece id as an integer.
func parseID(data Frontmatter, filename string) (int, error) {
	raw := strings.TrimSpace(data.Scalar("id"))
	if id, err := strconv.Atoi(raw); err == nil {
		return id, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, &InvalidDocumentError{File: filename, Field: "id", Reason: "not a finite number"}
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, &InvalidDocumentError{File: filename, Field: "id", Reason: "not an integer"}
	}
	return int(f), nil
}

func requireString(data Frontmatter, key, filename string) (string, error) {
	value := strings.TrimSpace(data.Scalar(key))
	if value == "" {
		return "", &InvalidDocumentError{File: filename, Field: key}
	}
	return value, nil
}

func normalizeMoods(data Frontmatter, filename string) ([]Mood, error) {
	var values []string
	if list, ok := data.List("mood"); ok {
		values = list
	} else if s := data.Scalar("mood"); s != "" {
		values = []string{s}
	}

	var moods []Mood
	for _, v := range values {
		m := Mood(strings.ToLower(strings.TrimSpace(v)))
		if isValidMood(m) {
			moods = append(moods, m)
		}
	}
	if len(moods) == 0 {
		return nil, &InvalidDocumentError{File: filename, Field: "mood"}
	}
	return moods, nil
}

func isValidMood(m Mood) bool {
	for _, valid := range ValidMoods {
		if m == valid {
			return true
		}
	}
	return false
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// runeLen is the character length used for fragment thresholds.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
