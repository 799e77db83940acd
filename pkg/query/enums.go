package query

// Closed value catalogs for fields whose values the platform
// enumerates. The CLI validates flag values against these before
// building a query; the API layer uses them for request payloads.

// Alert states.
const (
	StateOpen       = "OPEN"
	StateResolved   = "RESOLVED"
	StateInProgress = "IN_PROGRESS"
	StatePending    = "PENDING"
)

// AlertStates lists the valid alert workflow states.
var AlertStates = []string{StateOpen, StateResolved, StateInProgress, StatePending}

// RiskSeverities lists the valid risk severity values, lowest first.
var RiskSeverities = []string{"NO_RISK_INDICATED", "LOW", "MODERATE", "HIGH", "CRITICAL"}

// EventActions lists the valid file event action values.
var EventActions = []string{
	"removable-media-created",
	"removable-media-modified",
	"removable-media-deleted",
	"sync-app-created",
	"sync-app-modified",
	"sync-app-deleted",
	"file-shared",
	"file-created",
	"file-deleted",
	"file-downloaded",
	"file-emailed",
	"file-modified",
	"file-printed",
	"application-read",
}

// FileCategories lists the valid file category values.
var FileCategories = []string{
	"Audio",
	"Document",
	"Executable",
	"Image",
	"Pdf",
	"Presentation",
	"Script",
	"SourceCode",
	"Spreadsheet",
	"Video",
	"VirtualDiskImage",
	"Archive",
}

// ValidState reports whether s is a recognized alert state.
func ValidState(s string) bool {
	for _, known := range AlertStates {
		if s == known {
			return true
		}
	}
	return false
}

// ValidRiskSeverity reports whether s is a recognized risk severity.
func ValidRiskSeverity(s string) bool {
	for _, known := range RiskSeverities {
		if s == known {
			return true
		}
	}
	return false
}
