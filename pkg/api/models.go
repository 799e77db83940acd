package api

import (
	"time"
)

// Alert is a rule-generated security alert.
type Alert struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	Actor               string    `json:"actor"`
	ActorID             string    `json:"actorId"`
	State               string    `json:"state"`
	RiskSeverity        string    `json:"riskSeverity"`
	AlertSeverity       string    `json:"alertSeverity,omitempty"`
	RuleID              string    `json:"ruleId"`
	Watchlists          []string  `json:"watchlists,omitempty"`
	Note                string    `json:"note,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	StateLastModifiedBy string    `json:"stateLastModifiedBy,omitempty"`
	StateLastModifiedAt time.Time `json:"stateLastModifiedAt,omitempty"`
}

// CheckpointID identifies the alert for checkpoint dedup.
func (a *Alert) CheckpointID() string { return a.ID }

// CheckpointTime is the alert creation time as epoch seconds.
func (a *Alert) CheckpointTime() float64 {
	return float64(a.CreatedAt.UnixNano()) / float64(time.Second)
}

// AlertPage is one page of alert search results.
type AlertPage struct {
	Alerts        []*Alert `json:"alerts"`
	TotalCount    int      `json:"totalCount"`
	NextPageToken string   `json:"nextPgToken,omitempty"`
}

// FileEvent is a single observed file activity event.
type FileEvent struct {
	EventID        string    `json:"eventId"`
	Timestamp      time.Time `json:"@timestamp"`
	EventAction    string    `json:"eventAction"`
	FileName       string    `json:"fileName,omitempty"`
	FilePath       string    `json:"filePath,omitempty"`
	FileCategory   string    `json:"fileCategory,omitempty"`
	FileSizeBytes  int64     `json:"fileSizeInBytes,omitempty"`
	FileHash       string    `json:"fileHash,omitempty"`
	UserEmail      string    `json:"userEmail,omitempty"`
	DeviceName     string    `json:"deviceName,omitempty"`
	RiskScore      float64   `json:"riskScore,omitempty"`
	RiskSeverity   string    `json:"riskSeverity,omitempty"`
	RiskIndicators []string  `json:"riskIndicators,omitempty"`
	RiskTrusted    bool      `json:"riskTrusted,omitempty"`
}

// CheckpointID identifies the event for checkpoint dedup.
func (e *FileEvent) CheckpointID() string { return e.EventID }

// CheckpointTime is the event time as epoch seconds.
func (e *FileEvent) CheckpointTime() float64 {
	return float64(e.Timestamp.UnixNano()) / float64(time.Second)
}

// FileEventPage is one page of file-event search results.
type FileEventPage struct {
	FileEvents    []*FileEvent `json:"fileEvents"`
	TotalCount    int          `json:"totalCount"`
	NextPageToken string       `json:"nextPgToken,omitempty"`
}
