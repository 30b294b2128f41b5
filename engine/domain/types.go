// Package domain defines the antibiotic-resistance record and graph entity
// types shared by the ingestor, the uploader and the question-answering chain.
package domain

// CSV column names of the antibiotic resistance tracking export.
const (
	ColPatientID       = "Patient_ID"
	ColAge             = "Age"
	ColGender          = "Gender"
	ColSpecimenType    = "Specimen_Type"
	ColOutcome         = "Outcome"
	ColResistanceGenes = "Resistance_Genes"
)

// Columns lists the expected columns in export order.
var Columns = []string{
	ColPatientID, ColAge, ColGender, ColSpecimenType, ColOutcome, ColResistanceGenes,
}

// NoneSentinel marks an intentionally absent resistance gene.
const NoneSentinel = "None"

// Graph labels.
const (
	LabelPatient  = "Patient"
	LabelSpecimen = "Specimen"
	LabelOutcome  = "Outcome"
	LabelGene     = "Gene"
)

// Relationship types.
const (
	RelHasSpecimen = "HAS_SPECIMEN"
	RelHasOutcome  = "HAS_OUTCOME"
	RelHasGene     = "HAS_GENE"
)

// Record is one row of the tracking export with a present Patient_ID.
//
// Age holds an int64 or float64 when the cell is numeric, the raw text when it
// is not, and nil when the cell is missing. String fields are empty when the
// cell is missing.
type Record struct {
	Line            int    `json:"line"`
	PatientID       string `json:"patient_id"`
	Age             any    `json:"age"`
	Gender          string `json:"gender"`
	SpecimenType    string `json:"specimen_type"`
	Outcome         string `json:"outcome"`
	ResistanceGenes string `json:"resistance_genes"`
}

// HasGene reports whether the record carries a resistance gene.
func (r Record) HasGene() bool {
	return r.ResistanceGenes != "" && r.ResistanceGenes != NoneSentinel
}

// Patient is the Patient node. Age and Gender are written only when the node
// is first created.
type Patient struct {
	ID     string `json:"id"`
	Age    any    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Specimen is a specimen type node shared across patients.
type Specimen struct {
	Name string `json:"name"`
}

// Outcome is a clinical outcome node shared across patients.
type Outcome struct {
	Name string `json:"name"`
}

// Gene is a resistance gene node shared across patients.
type Gene struct {
	Name string `json:"name"`
}

// PatientFromRecord returns the Patient described by r.
func PatientFromRecord(r Record) Patient {
	return Patient{ID: r.PatientID, Age: r.Age, Gender: r.Gender}
}
