package convert

// Stage names one step of the conversion pipeline. A job moves through the
// stages in order and stops at the first failure.
type Stage string

const (
	StageReceived      Stage = "received"
	StageValidated     Stage = "validated"
	StageConverted     Stage = "converted"
	StageExtracted     Stage = "extracted"
	StageGenerated     Stage = "generated"
	StageSchemaChecked Stage = "schema-checked"
	StageCompliant     Stage = "compliant"
	StageDone          Stage = "done"
)

// FileUpload describes one uploaded file handed to the pipeline by the
// transport layer.
type FileUpload struct {
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MediaType    string `json:"mediaType"`
}

// FileResult is the per-file outcome returned to the caller. Error carries
// the message only; causes and stack traces stay in the logs.
type FileResult struct {
	OriginalName string `json:"originalName"`
	XMLName      string `json:"xmlName,omitempty"`
	XMLPath      string `json:"xmlPath,omitempty"`
	JobID        string `json:"jobId,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// BatchResult reports that a batch executed, with one entry per file.
// Success refers to the batch itself; per-file failures live in Results.
type BatchResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Results []FileResult `json:"results"`
}

// DocumentInfo carries non-fatal diagnostics about a validated input PDF.
type DocumentInfo struct {
	Pages     int    `json:"pages,omitempty"`
	Title     string `json:"title,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
	Size      int64  `json:"size"`
}
