package models

type UploadStatus string

const (
	UploadStatusPending        UploadStatus = "pending"
	UploadStatusStaged         UploadStatus = "staged"
	UploadStatusVendorDetected UploadStatus = "vendor_detected"
	UploadStatusProcessed      UploadStatus = "processed"
	UploadStatusValidated      UploadStatus = "validated"
	UploadStatusCompleted      UploadStatus = "completed"
	UploadStatusFailed         UploadStatus = "failed"
	UploadStatusPartial        UploadStatus = "partial"
)

func (s UploadStatus) IsTerminal() bool {
	switch s {
	case UploadStatusCompleted, UploadStatusFailed, UploadStatusPartial:
		return true
	}
	return false
}

// uploadTransitions is the pipeline state machine. Every stage persists its
// transition before proceeding; any stage may fail the upload. Terminal
// states can only be left via an explicit retry back to pending.
var uploadTransitions = map[UploadStatus][]UploadStatus{
	UploadStatusPending:        {UploadStatusStaged, UploadStatusFailed},
	UploadStatusStaged:         {UploadStatusVendorDetected, UploadStatusFailed},
	UploadStatusVendorDetected: {UploadStatusProcessed, UploadStatusFailed},
	UploadStatusProcessed:      {UploadStatusValidated, UploadStatusFailed},
	UploadStatusValidated:      {UploadStatusCompleted, UploadStatusPartial, UploadStatusFailed},
	UploadStatusCompleted:      {UploadStatusPending},
	UploadStatusFailed:         {UploadStatusPending},
	UploadStatusPartial:        {UploadStatusPending},
}

func CanTransitionUpload(from, to UploadStatus) bool {
	for _, next := range uploadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type StoreType string

const (
	StoreTypePhysical StoreType = "physical"
	StoreTypeOnline   StoreType = "online"
)
