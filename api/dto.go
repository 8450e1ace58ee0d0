/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the domain model from the external API contract. DTOs are
  pure data carriers; validation happens in handlers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/attendance-engine/dtr"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TimeEntryDTO mirrors dtr.TimeEntry with "HH:MM" strings.
type TimeEntryDTO struct {
	In       string `json:"in,omitempty"`
	Out      string `json:"out,omitempty"`
	Included bool   `json:"included"`
}

// ComputedDTO carries a day's computed deduction figures.
type ComputedDTO struct {
	Workday   bool   `json:"workday"`
	Lateness  int    `json:"lateness_minutes"`
	Undertime int    `json:"undertime_minutes"`
	Work      int    `json:"work_minutes"`
	Points    string `json:"deduction_points"`
}

// RecordDTO represents a stored deduction record.
type RecordDTO struct {
	Date       string       `json:"date"`
	Morning    TimeEntryDTO `json:"morning"`
	Afternoon  TimeEntryDTO `json:"afternoon"`
	Computed   ComputedDTO  `json:"computed"`
	CreatedAt  string       `json:"created_at"`
	ModifiedAt string       `json:"modified_at"`
}

// ComputeRequest asks for a calculation without saving.
type ComputeRequest struct {
	Date      string       `json:"date"`
	Morning   TimeEntryDTO `json:"morning"`
	Afternoon TimeEntryDTO `json:"afternoon"`
}

// SaveRequest writes a record. Overwrite confirms replacing an
// existing record after a 409 response.
type SaveRequest struct {
	Date      string       `json:"date"`
	Morning   TimeEntryDTO `json:"morning"`
	Afternoon TimeEntryDTO `json:"afternoon"`
}

// EditRequest replaces the actual times of an existing record.
type EditRequest struct {
	Morning   TimeEntryDTO `json:"morning"`
	Afternoon TimeEntryDTO `json:"afternoon"`
}

// DeleteRequest removes a batch of dates.
type DeleteRequest struct {
	Dates []string `json:"dates"`
}

// DeleteResponse reports how many records were removed.
type DeleteResponse struct {
	Removed int `json:"removed"`
}

// ConflictResponse is the 409 body: the record already occupying the
// date, so the client can show it before asking the user to confirm.
type ConflictResponse struct {
	Error    string    `json:"error"`
	Date     string    `json:"date"`
	Existing RecordDTO `json:"existing"`
}

// DayDTO describes the expected in/out times of a working day.
type DayDTO struct {
	MorningIn    string `json:"morning_in"`
	MorningOut   string `json:"morning_out"`
	AfternoonIn  string `json:"afternoon_in"`
	AfternoonOut string `json:"afternoon_out"`
}

// ScheduleDTO describes the active schedule rule.
type ScheduleDTO struct {
	Days                 map[string]DayDTO `json:"days"`
	GraceMinutes         int               `json:"grace_minutes"`
	FlexiCapMinutes      int               `json:"flexi_cap_minutes"`
	HalfDayAbsencePoints string            `json:"half_day_absence_points"`
	FullDayAbsencePoints string            `json:"full_day_absence_points"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func entryDTO(e dtr.TimeEntry) TimeEntryDTO {
	dto := TimeEntryDTO{Included: e.Included}
	if e.In != nil {
		dto.In = e.In.String()
	}
	if e.Out != nil {
		dto.Out = e.Out.String()
	}
	return dto
}

func entryFromDTO(dto TimeEntryDTO) (dtr.TimeEntry, error) {
	entry := dtr.TimeEntry{Included: dto.Included}
	if dto.In != "" {
		in, err := dtr.ParseClock(dto.In)
		if err != nil {
			return entry, err
		}
		entry.In = &in
	}
	if dto.Out != "" {
		out, err := dtr.ParseClock(dto.Out)
		if err != nil {
			return entry, err
		}
		entry.Out = &out
	}
	return entry, nil
}

func computedDTO(c dtr.ComputedResult) ComputedDTO {
	return ComputedDTO{
		Workday:   c.Workday,
		Lateness:  int(c.Lateness),
		Undertime: int(c.Undertime),
		Work:      int(c.Work),
		Points:    c.Points.String(),
	}
}

func recordDTO(rec dtr.DeductionRecord) RecordDTO {
	return RecordDTO{
		Date:       rec.Date.String(),
		Morning:    entryDTO(rec.Morning),
		Afternoon:  entryDTO(rec.Afternoon),
		Computed:   computedDTO(rec.Computed),
		CreatedAt:  rec.CreatedAt.Format(timeLayout),
		ModifiedAt: rec.ModifiedAt.Format(timeLayout),
	}
}
