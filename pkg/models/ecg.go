package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadName identifies one of the twelve standard clinical ECG leads.
type LeadName string

const (
	LeadI   LeadName = "I"
	LeadII  LeadName = "II"
	LeadIII LeadName = "III"
	LeadAVR LeadName = "aVR"
	LeadAVL LeadName = "aVL"
	LeadAVF LeadName = "aVF"
	LeadV1  LeadName = "V1"
	LeadV2  LeadName = "V2"
	LeadV3  LeadName = "V3"
	LeadV4  LeadName = "V4"
	LeadV5  LeadName = "V5"
	LeadV6  LeadName = "V6"
)

var validLeadNames = map[LeadName]struct{}{
	LeadI: {}, LeadII: {}, LeadIII: {},
	LeadAVR: {}, LeadAVL: {}, LeadAVF: {},
	LeadV1: {}, LeadV2: {}, LeadV3: {},
	LeadV4: {}, LeadV5: {}, LeadV6: {},
}

// IsValidLeadName reports whether name is one of the twelve clinical labels.
func IsValidLeadName(name LeadName) bool {
	_, ok := validLeadNames[name]
	return ok
}

// ECG is one electrocardiogram recording. Leads are created atomically with
// the ECG; JobID is populated exactly once after the analysis job is
// dispatched and is nil until then.
type ECG struct {
	ID     uuid.UUID  `json:"id"`
	UserID uuid.UUID  `json:"user_id"`
	Date   time.Time  `json:"date"`
	JobID  *uuid.UUID `json:"job_id,omitempty"`
	Leads  []*Lead    `json:"leads"`
}

// Lead is a single channel of ECG signal. SampleNumber is optional; when
// present it must be strictly positive (enforced at validation time and by a
// database CHECK constraint).
type Lead struct {
	ID           uuid.UUID `json:"id"`
	ECGID        uuid.UUID `json:"-"`
	Name         LeadName  `json:"name"`
	Signal       []int     `json:"signal"`
	SampleNumber *int      `json:"sample_number,omitempty"`
	Analysis     *Analysis `json:"analysis,omitempty"`
}

// Analysis holds the zero-crossing count for one lead. Only the analysis
// worker creates these; the client-facing API never writes them.
type Analysis struct {
	ID     uuid.UUID `json:"id"`
	LeadID uuid.UUID `json:"-"`
	Result int       `json:"result"`
}
