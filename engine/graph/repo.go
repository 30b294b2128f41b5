package graph

import (
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/sanjuz-cas/llm-kg-project/pkg/repo"
)

func newPatientRepo(opener SessionOpener) *repo.NodeRepo[domain.Patient] {
	return repo.NewNodeRepo(opener, domain.LabelPatient, "id", patientToMap)
}

// patientToMap maps a Patient to node properties. Missing values map to nil
// so they are never written.
func patientToMap(p domain.Patient) map[string]any {
	m := map[string]any{
		"id":     p.ID,
		"age":    p.Age,
		"gender": nil,
	}
	if p.Gender != "" {
		m["gender"] = p.Gender
	}
	return m
}
