package dto

// VerifyFaceDTO is the request body for verifying a captured face against a
// user's enrolled references.
type VerifyFaceDTO struct {
	UserID string `json:"userID" validate:"required,max=100"`

	// Image is the captured frame, base64 encoded with or without a data
	// URI prefix.
	Image string `json:"image" validate:"required,base64image"`

	// RecordID optionally links this attempt to an external workflow record.
	RecordID *string `json:"recordID,omitempty" validate:"omitempty,max=100"`
}

// EnrollFaceDTO is the request body for registering reference embeddings.
type EnrollFaceDTO struct {
	UserID string `json:"userID" validate:"required,max=100"`
	Image  string `json:"image" validate:"required,base64image"`
}
