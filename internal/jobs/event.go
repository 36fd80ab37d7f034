package jobs

// Stage tags a progress event with the pipeline transition or outcome it reports.
type Stage string

// The closed set of stages a job can report. Finished is always the last
// event of a run; consumers must treat it as the stream terminator.
const (
	StageReceived         Stage = "received"
	StageValidated        Stage = "validated"
	StageGenerating       Stage = "generating"
	StageScored           Stage = "scored"
	StageStored           Stage = "stored"
	StagePDFGenerated     Stage = "pdf_generated"
	StageSendingEmail     Stage = "sending_email"
	StageEmailSent        Stage = "email_sent"
	StageEmailFailed      Stage = "email_failed"
	StageInvalidDocuments Stage = "invalid_documents"
	StageError            Stage = "error"
	StageFinished         Stage = "finished"
)

// ProgressEvent is one discrete notification on a job's event stream.
// It marshals to the wire shape {"type": ..., "payload": ...}.
type ProgressEvent struct {
	Type    Stage `json:"type"`
	Payload any   `json:"payload,omitempty"`
}

// Terminal reports whether this event ends the observable lifecycle of a job.
func (e ProgressEvent) Terminal() bool {
	return e.Type == StageFinished
}

// FinishedPayload is the payload of the terminal event. EvaluationID is set
// only when OK is true, so the client can fetch the persisted result.
type FinishedPayload struct {
	OK           bool   `json:"ok"`
	EvaluationID string `json:"evaluationId,omitempty"`
}

// MessagePayload carries a human-readable note for informational stages.
type MessagePayload struct {
	Message string `json:"message"`
}
