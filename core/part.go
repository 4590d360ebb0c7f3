package core

// Conversation roles carried by Content.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set. A part
// carries exactly one payload kind; the normalizer relies on this when
// producing wire mappings.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// FunctionCallPart describes a tool/function invocation request emitted by an
// agent, with its structured argument payload.
type FunctionCallPart struct {
	Name string
	Args map[string]any
}

func (FunctionCallPart) isPart() {}

// FunctionResponsePart captures the outcome of a previously emitted function
// call.
type FunctionResponsePart struct {
	Name     string
	Response map[string]any
}

func (FunctionResponsePart) isPart() {}

// FileDataPart references a file by URI rather than inlining its bytes.
type FileDataPart struct {
	FileURI  string
	MimeType string
}

func (FileDataPart) isPart() {}

// InlineDataPart carries an inline blob as base64 encoded bytes.
type InlineDataPart struct {
	MimeType string
	Data     string
}

func (InlineDataPart) isPart() {}

// Content holds a role plus ordered heterogeneous parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}
