package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// WardSessionStatus represents the lifecycle state of a ward session.
// ACTIVE -> COMPLETED is one-way and terminal.
type WardSessionStatus string

const (
	WardSessionActive    WardSessionStatus = "ACTIVE"
	WardSessionCompleted WardSessionStatus = "COMPLETED"
)

// ZoneAssignment maps one responsible user to the patients of a ward zone
type ZoneAssignment struct {
	UserID     string   `json:"user_id"`
	PatientIDs []string `json:"patient_ids"`
}

// WardAssignments is the typed assignment structure of a ward session.
// Zone keys map to a single responsible user and a set of patients;
// faculty and observers are plain user lists.
type WardAssignments struct {
	Faculty   []string                  `json:"faculty,omitempty"`
	Observers []string                  `json:"observers,omitempty"`
	Zones     map[string]ZoneAssignment `json:"zones,omitempty"`
}

// UserRefs returns the de-duplicated union of every user referenced
// anywhere in the assignments, in sorted order.
func (a *WardAssignments) UserRefs() []string {
	seen := make(map[string]struct{})
	for _, zone := range a.Zones {
		if zone.UserID != "" {
			seen[zone.UserID] = struct{}{}
		}
	}
	for _, id := range a.Faculty {
		seen[id] = struct{}{}
	}
	for _, id := range a.Observers {
		seen[id] = struct{}{}
	}

	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return refs
}

// ZoneFor resolves the zone label for a user. Zone keys are scanned in
// sorted order, then the faculty and observer lists; the first match
// wins. The upstream contract never defined a precedence for users
// appearing under multiple keys, so the sorted scan only makes the
// pick deterministic.
func (a *WardAssignments) ZoneFor(userID string) (string, bool) {
	keys := make([]string, 0, len(a.Zones))
	for key := range a.Zones {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if a.Zones[key].UserID == userID {
			return key, true
		}
	}
	for _, id := range a.Faculty {
		if id == userID {
			return "faculty", true
		}
	}
	for _, id := range a.Observers {
		if id == userID {
			return "observer", true
		}
	}
	return "", false
}

// Value implements driver.Valuer so assignments persist as jsonb
func (a WardAssignments) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the jsonb assignments column
func (a *WardAssignments) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = WardAssignments{}
		return nil
	default:
		return fmt.Errorf("unsupported assignments source type %T", src)
	}
}

// WardSession represents a multi-user ward training exercise
type WardSession struct {
	ID              string            `json:"id" db:"id"`
	OrgID           string            `json:"org_id" db:"org_id"`
	WardID          string            `json:"ward_id" db:"ward_id"`
	StartedBy       string            `json:"started_by" db:"started_by"`
	Status          WardSessionStatus `json:"status" db:"status"`
	Assignments     WardAssignments   `json:"assignments" db:"assignments"`
	StartTime       time.Time         `json:"start_time" db:"start_time"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// StartWardSessionRequest carries the ward session start parameters
type StartWardSessionRequest struct {
	WardID          string          `json:"ward_id"`
	DurationMinutes int             `json:"duration_minutes"`
	Assignments     WardAssignments `json:"assignments"`
}

// WardSessionStartedPayload is the per-user session:started wire payload
// for ward exercises, carrying the recipient's resolved zone.
type WardSessionStartedPayload struct {
	WardSessionID   string `json:"ward_session_id"`
	WardID          string `json:"ward_id"`
	Zone            string `json:"zone"`
	DurationMinutes int    `json:"duration_minutes"`
}
