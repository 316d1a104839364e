package log

import "time"

// Event is one registry event. Exactly one payload pointer is set.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ContextID identifies the change-set context (connection) involved,
	// if any.
	ContextID string `cbor:"2,keyasint,omitempty"`

	// Category classifies the event.
	Category Category `cbor:"3,keyasint"`

	// Entity names the block, field, attribute or metadata key concerned.
	Entity string `cbor:"4,keyasint,omitempty"`

	Put    *PutEvent    `cbor:"10,keyasint,omitempty"`
	Report *ReportEvent `cbor:"11,keyasint,omitempty"`
	Config *ConfigEvent `cbor:"12,keyasint,omitempty"`
	State  *StateEvent  `cbor:"13,keyasint,omitempty"`
}

// Category classifies registry events.
type Category uint8

const (
	// CategoryPut is a client write of a value, attribute or table.
	CategoryPut Category = 0
	// CategoryReport is a change report handed to a context.
	CategoryReport Category = 1
	// CategoryConfig is a configuration error.
	CategoryConfig Category = 2
	// CategoryState is a registry lifecycle transition.
	CategoryState Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPut:
		return "PUT"
	case CategoryReport:
		return "REPORT"
	case CategoryConfig:
		return "CONFIG"
	case CategoryState:
		return "STATE"
	default:
		return "UNKNOWN"
	}
}

// PutKind distinguishes what a put wrote.
type PutKind uint8

const (
	PutValue    PutKind = 0
	PutAttr     PutKind = 1
	PutTable    PutKind = 2
	PutMetadata PutKind = 3
)

// String returns the put kind name.
func (k PutKind) String() string {
	switch k {
	case PutValue:
		return "VALUE"
	case PutAttr:
		return "ATTR"
	case PutTable:
		return "TABLE"
	case PutMetadata:
		return "METADATA"
	default:
		return "UNKNOWN"
	}
}

// PutEvent records one client write, successful or not.
type PutEvent struct {
	Kind PutKind `cbor:"1,keyasint"`

	// Value is the written string. For tables it is empty and Words holds
	// the number of words written.
	Value string `cbor:"2,keyasint,omitempty"`
	Words int    `cbor:"3,keyasint,omitempty"`

	// Error is the failure message; empty on success.
	Error string `cbor:"4,keyasint,omitempty"`

	// Stamp is the change index assigned by a successful write.
	Stamp uint64 `cbor:"5,keyasint,omitempty"`
}

// ReportEvent records one change-set walk.
type ReportEvent struct {
	// Categories is the requested category set, for example "CONFIG|BITS".
	Categories string `cbor:"1,keyasint"`

	// CheckOnly is set for "has anything changed" walks.
	CheckOnly bool `cbor:"2,keyasint,omitempty"`

	// Lines is the number of lines emitted, or 1 for a check that found a
	// change.
	Lines int `cbor:"3,keyasint"`

	// FormatErrors counts entities reported with an error marker.
	FormatErrors int `cbor:"4,keyasint,omitempty"`

	Duration time.Duration `cbor:"5,keyasint,omitempty"`
}

// ConfigEvent records a configuration error.
type ConfigEvent struct {
	Message string `cbor:"1,keyasint"`
}

// StateEvent records a registry lifecycle transition.
type StateEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`
	Reason   string `cbor:"3,keyasint,omitempty"`
}
