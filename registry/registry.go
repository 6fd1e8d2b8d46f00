// registry/registry.go

// Package registry holds the static reconciliation tables that map
// organisation names, legacy codes, and dataset keywords onto the canonical
// key space. The tables are plain data: the registry does no I/O after
// construction and is safe to share across stages.
package registry

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jszwec/csvutil"
)

// UnmappedID is the sentinel drill-through id for values no mapping covers.
const UnmappedID = 99

//go:embed frs_codes.csv
var frsCodesCSV []byte

// frsCodeRow is one row of the embedded seed file. An empty code marks a
// known organisation that is excluded from the English data model (the
// devolved services).
type frsCodeRow struct {
	Name string `csv:"frs_name"`
	Code string `csv:"frs_code"`
}

// KeywordID pairs a dataset-name keyword with a drill-through id. Order
// matters: the first matching keyword wins.
type KeywordID struct {
	Keyword string
	ID      int
}

// KeywordCategory pairs a dataset-name keyword with a coarse category.
// Order matters here too.
type KeywordCategory struct {
	Keyword  string
	Category string
}

// Registry is the immutable code-mapping registry injected into the silver
// and gold stages.
type Registry struct {
	frsNameToCode map[string]string

	// FRSMergers maps historical FRS codes onto the current standard
	// (code A and code B both collapse to code C after a merger).
	FRSMergers map[string]string

	// MasterFRSNames holds the official names of merger-target codes.
	MasterFRSNames map[string]string

	// LADBoundaryChanges remaps pre-2021 local authority district codes to
	// their post-reorganisation successors.
	LADBoundaryChanges map[string]string

	// IncidentTypeIDs maps incident-type values to drill-through ids.
	IncidentTypeIDs map[string]int

	// FallbackDatasetIDs resolves a drill-through id from the dataset name
	// when no incident-type column exists.
	FallbackDatasetIDs []KeywordID

	// CategoryKeywords classifies datasets into coarse incident categories.
	CategoryKeywords []KeywordCategory
}

// NewDefault builds the registry from the embedded seed data.
func NewDefault() (*Registry, error) {
	nameToCode, err := loadFRSCodes(frsCodesCSV)
	if err != nil {
		return nil, err
	}

	return &Registry{
		frsNameToCode: nameToCode,

		FRSMergers: map[string]string{
			"E31000017": "E31000048", // old Hampshire
			"E31000021": "E31000048", // old Isle of Wight
		},

		MasterFRSNames: map[string]string{
			"E31000048": "Hampshire and Isle of Wight Fire and Rescue Service",
			"E31000047": "Dorset & Wiltshire",
			"E31000008": "Cornwall",
		},

		LADBoundaryChanges: map[string]string{
			"E07000026": "E06000063", "E07000027": "E06000063", "E07000028": "E06000063",
			"E07000029": "E06000064", "E07000030": "E06000064", "E07000031": "E06000064",
			"E07000163": "E06000065", "E07000164": "E06000065", "E07000165": "E06000065",
			"E07000166": "E06000065", "E07000167": "E06000065", "E07000168": "E06000065", "E07000169": "E06000065",
			"E07000186": "E06000066", "E07000187": "E06000066", "E07000189": "E06000066", "E07000242": "E06000066",
			"E07000190": "E06000066", "E07000192": "E06000066",
			"E07000151": "E06000061", "E07000152": "E06000061", "E07000153": "E06000061", "E07000154": "E06000061",
			"E07000150": "E06000062", "E07000155": "E06000062", "E07000156": "E06000062",
		},

		IncidentTypeIDs: map[string]int{
			"Dwellings": 10, "Dwelling": 10, "Dwelling fires": 10, "Chimney Fires": 10,
			"Other Buildings": 20, "Other building": 20,
			"Road Vehicles": 30, "Road Vehicle": 30,
			"Secondary Fires": 31, "Other Outdoors": 32, "Other Outdoor": 32, "Grass Fire": 32,
			"Due to apparatus": 40, "Good intent": 40, "Malicious": 40, "False Alarm": 40, "Non-fire false alarms": 40,
			"Non-fire incidents": 50,
		},

		FallbackDatasetIDs: []KeywordID{
			{"dwelling", 10},
			{"other_building", 20},
			{"road_vehicle", 30},
			{"outdoor", 31},
			{"secondary", 31},
			{"false_alarm", 40},
			{"road_traffic", 50},
			{"medical", 50},
			{"flood", 50},
			{"water", 50},
			{"animal", 50},
			{"collaborating", 50},
			{"bariatric", 50},
			{"other_non_fire", 50},
		},

		CategoryKeywords: []KeywordCategory{
			{"dwelling", "Fire"},
			{"domestic_appliance", "Fire"},
			{"other_building", "Fire"},
			{"road_vehicle", "Fire"},
			{"outdoor", "Fire"},
			{"secondary", "Fire"},
			{"chimney", "Fire"},
			{"false_alarm", "False Alarm"},
			{"road_traffic", "Special Service"},
			{"medical", "Special Service"},
			{"collaborating", "Special Service"},
			{"flood", "Special Service"},
			{"water", "Special Service"},
			{"animal", "Special Service"},
			{"bariatric", "Special Service"},
			{"other_non_fire", "Special Service"},
			{"other_incidents", "Special Service"},
			{"casualty", "Victims"},
			{"casualties", "Victims"},
			{"fatality", "Victims"},
			{"fatalities", "Victims"},
		},
	}, nil
}

func loadFRSCodes(data []byte) (map[string]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for FRS code seed: %w", err)
	}

	var rows []frsCodeRow
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode FRS code seed: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Code
	}
	return out, nil
}

// FRSCodeForName resolves an organisation name to its canonical code. It
// returns false for unknown names and for known-but-excluded ones (the
// devolved services carry no code in the English model).
func (r *Registry) FRSCodeForName(name string) (string, bool) {
	code, ok := r.frsNameToCode[strings.TrimSpace(name)]
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// KnownFRSNames returns every seeded name→code pair, excluded entries
// included (their code is empty).
func (r *Registry) KnownFRSNames() map[string]string {
	out := make(map[string]string, len(r.frsNameToCode))
	for k, v := range r.frsNameToCode {
		out[k] = v
	}
	return out
}

// CanonicalFRSCode folds historical codes into the current standard; codes
// with no recorded merger pass through unchanged.
func (r *Registry) CanonicalFRSCode(code string) string {
	if mapped, ok := r.FRSMergers[code]; ok {
		return mapped
	}
	return code
}

// IncidentTypeID maps an incident-type value to its drill-through id.
func (r *Registry) IncidentTypeID(value string) (int, bool) {
	id, ok := r.IncidentTypeIDs[strings.TrimSpace(value)]
	return id, ok
}

// DatasetFallbackID infers a drill-through id from a normalized dataset
// name; the first matching keyword wins.
func (r *Registry) DatasetFallbackID(normalizedName string) (int, bool) {
	for _, kw := range r.FallbackDatasetIDs {
		if strings.Contains(normalizedName, kw.Keyword) {
			return kw.ID, true
		}
	}
	return 0, false
}

// CategoryForDataset classifies a normalized dataset name into a coarse
// category, defaulting to "Uncategorized".
func (r *Registry) CategoryForDataset(normalizedName string) string {
	for _, kw := range r.CategoryKeywords {
		if strings.Contains(normalizedName, kw.Keyword) {
			return kw.Category
		}
	}
	return "Uncategorized"
}

// RemapLADCode applies the boundary-change table to a local authority code.
func (r *Registry) RemapLADCode(code string) string {
	if mapped, ok := r.LADBoundaryChanges[code]; ok {
		return mapped
	}
	return code
}
