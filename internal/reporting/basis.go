package reporting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"spot-curve-lab/internal/domain"
)

// BasisExport is the basis definition exported with the coefficients, enough
// to re-evaluate any stored curve.
type BasisExport struct {
	Type              string           `yaml:"type"`
	Spec              domain.BasisSpec `yaml:"spec"`
	Knots             []float64        `yaml:"knots"`
	PenaltyDerivative int              `yaml:"penalty_derivative"`
	LambdaCandidates  []float64        `yaml:"lambda_candidates"`
	Selection         string           `yaml:"selection"`
}

// RenderBasisYAML renders the basis definition as YAML.
func RenderBasisYAML(spec domain.BasisSpec, knots []float64, penaltyDeriv int, lambdas []float64) (string, error) {
	out, err := yaml.Marshal(BasisExport{
		Type:              "bspline",
		Spec:              spec,
		Knots:             knots,
		PenaltyDerivative: penaltyDeriv,
		LambdaCandidates:  lambdas,
		Selection:         "gcv",
	})
	if err != nil {
		return "", fmt.Errorf("marshal basis: %w", err)
	}
	return string(out), nil
}
