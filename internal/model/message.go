package model

// HostMessageType is the type tag of a message to the embedding host
type HostMessageType string

const (
	MsgIsCompletionSlide  HostMessageType = "IS_COMPLETION_SLIDE"
	MsgSubmoduleCompleted HostMessageType = "SUBMODULE_COMPLETED"
	MsgShowSubmodules     HostMessageType = "SHOW_SUBMODULES"
)

// HostMessage is the envelope posted to the host application
type HostMessage struct {
	Type    HostMessageType `json:"type"`
	Payload interface{}     `json:"payload,omitempty"`
}
