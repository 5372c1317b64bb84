package model

// CompletionState is the completion slide's lifecycle position
type CompletionState string

const (
	CompletionEntering     CompletionState = "entering"
	CompletionAwaitingSync CompletionState = "awaiting_sync"
	CompletionReady        CompletionState = "ready"
	CompletionUserReturned CompletionState = "user_returned"
	CompletionAutoReturned CompletionState = "auto_returned"
	CompletionSyncFailed   CompletionState = "sync_failed"
)

// Terminal reports whether no further transitions can happen
func (s CompletionState) Terminal() bool {
	return s == CompletionUserReturned || s == CompletionAutoReturned
}

// CompletionSession is a snapshot of the completion controller
type CompletionSession struct {
	State               CompletionState `json:"state"`
	Animate             bool            `json:"animate"`
	CompletionMarked    bool            `json:"completionMarked"`
	APICompleted        bool            `json:"apiCompleted"`
	UserInitiatedReturn bool            `json:"userInitiatedReturn"`
	ReturnEnabled       bool            `json:"returnEnabled"`
}

// CompletionIdentity names the learner and lesson being completed
type CompletionIdentity struct {
	StudentID   string `json:"studentId" bson:"studentId"`
	SubmoduleID string `json:"submoduleId" bson:"submoduleId"`
	ModuleID    string `json:"moduleId" bson:"moduleId"`
	ClassID     string `json:"classId" bson:"classId"`
}

// Complete reports whether the identity is enough to mark completion
func (i CompletionIdentity) Complete() bool {
	return i.StudentID != "" && i.SubmoduleID != ""
}

// CompletionPayload is the body of SUBMODULE_COMPLETED
type CompletionPayload struct {
	StudentID   string `json:"studentId"`
	SubmoduleID string `json:"submoduleId"`
	ModuleID    string `json:"moduleId"`
	ClassID     string `json:"classId"`
	Timestamp   string `json:"timestamp"` // ISO-8601
}

// StartCompletionRequest is the body of POST /v1/completion
type StartCompletionRequest struct {
	ModuleID    string `json:"moduleId"`
	SubmoduleID string `json:"submoduleId"`
}
