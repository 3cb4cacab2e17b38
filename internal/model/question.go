package model

// Question is a single entry of an uploaded question bank payload.
// Option uniqueness and whether CorrectAnswer appears among Options are
// deliberately not enforced server-side; the payload is stored as given.
type Question struct {
	ID            int      `json:"id"`
	Category      string   `json:"category"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// QuizMetaRequest carries the multipart metadata fields shared by the
// upload and edit endpoints. The file and password travel separately.
type QuizMetaRequest struct {
	Title       string `form:"title" binding:"required"`
	Subject     string `form:"subject" binding:"required"`
	Description string `form:"description" binding:"omitempty"`
	AuthorName  string `form:"authorName" binding:"required"`
	AuthorEmail string `form:"authorEmail" binding:"omitempty,email"`
}

// UploadQuizRequest is the full upload form: metadata plus a new owner
// password (minimum 6 characters, hashed before persisting).
type UploadQuizRequest struct {
	QuizMetaRequest
	Password string `form:"password" binding:"required,min=6"`
}

// EditQuizRequest is the edit form. The password proves ownership of the
// existing record and is not re-validated for length.
type EditQuizRequest struct {
	QuizMetaRequest
	Password string `form:"password" binding:"required"`
}

// PasswordRequest is the JSON body of verify-password and delete calls.
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
