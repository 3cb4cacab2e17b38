package model

import "time"

// QuizRecord is the persisted metadata entry for one uploaded quiz.
// PasswordDigest is the bcrypt hash of the owner-chosen password; it is
// written to the collection file but stripped before a record is handed
// to API clients.
type QuizRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description,omitempty"`
	AuthorName     string    `json:"authorName"`
	AuthorEmail    string    `json:"authorEmail,omitempty"`
	FileRef        string    `json:"fileUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	PasswordDigest string    `json:"password,omitempty"`
}

// Public returns a copy of the record with the password digest stripped,
// safe to hand to API clients.
func (r QuizRecord) Public() QuizRecord {
	r.PasswordDigest = ""
	return r
}

// SearchField enumerates the record fields that can be searched.
type SearchField string

const (
	SearchByTitle       SearchField = "title"
	SearchBySubject     SearchField = "subject"
	SearchByAuthorName  SearchField = "authorName"
	SearchByAuthorEmail SearchField = "authorEmail"
	SearchByID          SearchField = "id"
)

// Value extracts the searchable value for a field. The second return is
// false when the field is not part of the enumerated set.
func (r QuizRecord) Value(field SearchField) (string, bool) {
	switch field {
	case SearchByTitle:
		return r.Title, true
	case SearchBySubject:
		return r.Subject, true
	case SearchByAuthorName:
		return r.AuthorName, true
	case SearchByAuthorEmail:
		return r.AuthorEmail, true
	case SearchByID:
		return r.ID, true
	default:
		return "", false
	}
}
