package enrollment

// Identity is the enrollment service's record of a stored face profile.
type Identity struct {
	FaceID int64  `json:"face_id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Request carries one candidate face to the enrollment service.
type Request struct {
	FileName    string
	ContentType string
	Data        []byte
	Name        string // required
	Department  string // optional classification
	AccessLevel string // optional classification
}
