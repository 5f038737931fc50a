package testutil

import "fmt"

const (
	// VitalSignsTemplate is the template id of BloodPressureDocument.
	VitalSignsTemplate = "vital_signs.v1"

	// EncounterArchetype is the root archetype of BloodPressureDocument.
	EncounterArchetype = "openEHR-EHR-COMPOSITION.encounter.v1"

	// BloodPressureArchetype is the observation inside BloodPressureDocument.
	BloodPressureArchetype = "openEHR-EHR-OBSERVATION.sample_blood_pressure.v1"
)

// BloodPressureDocument returns a vital signs composition holding one blood
// pressure observation with a single event.
//
//	content[BloodPressureArchetype]
//	  data[at0001]/events[at0002]/data[at0003]/items
//	    [at0004,'Systolic']/value/magnitude   = systolic
//	    [at0005,'Diastolic']/value/magnitude  = diastolic
func BloodPressureDocument(systolic, diastolic int) []byte {
	return []byte(fmt.Sprintf(`{
  "_type": "COMPOSITION",
  "archetype_node_id": %q,
  "name": {"value": "Vital signs"},
  "archetype_details": {"template_id": {"value": %q}},
  "content": [
    {
      "_type": "OBSERVATION",
      "archetype_node_id": %q,
      "name": {"value": "Blood pressure"},
      "data": {
        "archetype_node_id": "at0001",
        "name": {"value": "history"},
        "events": [
          {
            "_type": "POINT_EVENT",
            "archetype_node_id": "at0002",
            "name": {"value": "any event"},
            "time": {"value": "2024-01-15T09:30:00Z"},
            "data": {
              "archetype_node_id": "at0003",
              "name": {"value": "data"},
              "items": [
                {
                  "_type": "ELEMENT",
                  "archetype_node_id": "at0004",
                  "name": {"value": "Systolic"},
                  "value": {"_type": "DV_QUANTITY", "magnitude": %d, "units": "mm[Hg]"}
                },
                {
                  "_type": "ELEMENT",
                  "archetype_node_id": "at0005",
                  "name": {"value": "Diastolic"},
                  "value": {"_type": "DV_QUANTITY", "magnitude": %d, "units": "mm[Hg]"}
                }
              ]
            }
          }
        ]
      }
    }
  ]
}`, EncounterArchetype, VitalSignsTemplate, BloodPressureArchetype, systolic, diastolic))
}

// SystolicMagnitudePath is the raw path of the systolic magnitude in
// BloodPressureDocument, as emitted by the AQL parser.
func SystolicMagnitudePath() []string {
	return []string{
		"/content[" + BloodPressureArchetype + "]",
		"0",
		"/data[at0001]",
		"/events[at0002]",
		"0",
		"/data[at0003]",
		"/items[at0004]",
		"$AQL_NODE_NAME_PREDICATE$",
		"'Systolic'",
		"/value",
		"/magnitude",
	}
}

// DiastolicMagnitudePath is SystolicMagnitudePath for the diastolic item.
func DiastolicMagnitudePath() []string {
	return []string{
		"/content[" + BloodPressureArchetype + "]",
		"0",
		"/data[at0001]",
		"/events[at0002]",
		"0",
		"/data[at0003]",
		"/items[at0005]",
		"$AQL_NODE_NAME_PREDICATE$",
		"'Diastolic'",
		"/value",
		"/magnitude",
	}
}
