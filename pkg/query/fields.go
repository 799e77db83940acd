package query

// Kind describes the value type of a searchable field, which
// constrains the operators that may be applied to it.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTimestamp
	KindBool
)

// Domain selects which field schema a query is validated against.
// Alerts and file events expose different search terms.
type Domain string

const (
	DomainAlerts     Domain = "alerts"
	DomainFileEvents Domain = "file_events"
)

// Alert search terms.
const (
	AlertFieldCreatedAt     = "CreatedAt"
	AlertFieldAlertID       = "AlertId"
	AlertFieldType          = "Type"
	AlertFieldName          = "Name"
	AlertFieldDescription   = "Description"
	AlertFieldActor         = "Actor"
	AlertFieldActorID       = "ActorId"
	AlertFieldRiskSeverity  = "RiskSeverity"
	AlertFieldState         = "State"
	AlertFieldRuleID        = "RuleId"
	AlertFieldAlertSeverity = "AlertSeverity"
	AlertFieldTarget        = "Target"
)

var alertFields = map[string]Kind{
	AlertFieldCreatedAt:     KindTimestamp,
	AlertFieldAlertID:       KindString,
	AlertFieldType:          KindString,
	AlertFieldName:          KindString,
	AlertFieldDescription:   KindString,
	AlertFieldActor:         KindString,
	AlertFieldActorID:       KindString,
	AlertFieldRiskSeverity:  KindString,
	AlertFieldState:         KindString,
	AlertFieldRuleID:        KindString,
	AlertFieldAlertSeverity: KindString,
	AlertFieldTarget:        KindString,
}

// File event search terms. Field names follow the dotted paths the
// event store indexes.
const (
	EventFieldTimestamp = "@timestamp"
	EventFieldID        = "event.id"
)

var fileEventFields = map[string]Kind{
	EventFieldTimestamp:               KindTimestamp,
	EventFieldID:                      KindString,
	"event.action":                    KindString,
	"event.ingested":                  KindTimestamp,
	"event.inserted":                  KindTimestamp,
	"event.observer":                  KindString,
	"event.shareType":                 KindString,
	"user.email":                      KindString,
	"user.id":                         KindString,
	"user.deviceUid":                  KindString,
	"file.name":                       KindString,
	"file.directory":                  KindString,
	"file.category":                   KindString,
	"file.categoryByBytes":            KindString,
	"file.categoryByExtension":        KindString,
	"file.mimeTypeByBytes":            KindString,
	"file.mimeTypeByExtension":        KindString,
	"file.sizeInBytes":                KindNumber,
	"file.owner":                      KindString,
	"file.created":                    KindTimestamp,
	"file.modified":                   KindTimestamp,
	"file.hash.md5":                   KindString,
	"file.hash.sha256":                KindString,
	"file.id":                         KindString,
	"file.url":                        KindString,
	"file.cloudDriveId":               KindString,
	"process.executable":              KindString,
	"process.owner":                   KindString,
	"risk.score":                      KindNumber,
	"risk.severity":                   KindString,
	"risk.trusted":                    KindBool,
	"risk.trustReason":                KindString,
	"risk.indicators.name":            KindString,
	"risk.indicators.weight":          KindNumber,
	"source.category":                 KindString,
	"source.domain":                   KindString,
	"source.ip":                       KindString,
	"source.privateIp":                KindString,
	"source.name":                     KindString,
	"source.operatingSystem":          KindString,
	"source.email.from":               KindString,
	"source.email.sender":             KindString,
	"source.removableMedia.name":      KindString,
	"source.removableMedia.vendor":    KindString,
	"source.tabs.title":               KindString,
	"source.tabs.url":                 KindString,
	"destination.category":            KindString,
	"destination.name":                KindString,
	"destination.ip":                  KindString,
	"destination.privateIp":           KindString,
	"destination.accountName":         KindString,
	"destination.accountType":         KindString,
	"destination.domains":             KindString,
	"destination.operatingSystem":     KindString,
	"destination.email.recipients":    KindString,
	"destination.email.subject":       KindString,
	"destination.user.email":          KindString,
	"destination.printerName":         KindString,
	"destination.printJobName":        KindString,
	"destination.removableMedia.name": KindString,
	"destination.tabs.title":          KindString,
	"destination.tabs.url":            KindString,
	"report.id":                       KindString,
	"report.name":                     KindString,
	"report.type":                     KindString,
	"report.count":                    KindNumber,
}

// Fields returns the field schema for the domain. Unknown domains
// return nil, which fails every field lookup.
func (d Domain) Fields() map[string]Kind {
	switch d {
	case DomainAlerts:
		return alertFields
	case DomainFileEvents:
		return fileEventFields
	default:
		return nil
	}
}

// TimeField returns the canonical event-time field for the domain.
// Checkpointed searches filter on this field.
func (d Domain) TimeField() string {
	switch d {
	case DomainAlerts:
		return AlertFieldCreatedAt
	case DomainFileEvents:
		return EventFieldTimestamp
	default:
		return ""
	}
}
