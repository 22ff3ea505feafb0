package model

import "fmt"

// Chemistry identifies the reference cell family a battery pack is built
// from. The reference cell fixes capacity, nominal voltage and the
// parameter tables used for Voc/R0 lookups.
type Chemistry string

const (
	ChemistryNMC Chemistry = "nmc"
	ChemistryNCA Chemistry = "nca"
	ChemistryLFP Chemistry = "lfp"
)

// ParseChemistry converts a configuration string into a Chemistry.
func ParseChemistry(s string) (Chemistry, error) {
	switch Chemistry(s) {
	case ChemistryNMC, ChemistryNCA, ChemistryLFP:
		return Chemistry(s), nil
	default:
		return "", fmt.Errorf("unknown chemistry %q", s)
	}
}

// String returns the configuration spelling of the chemistry.
func (c Chemistry) String() string { return string(c) }

// ModelKind selects the battery electrical model variant.
type ModelKind string

const (
	// ModelPack is the table-based pack model using Voc/R0 lookups.
	ModelPack ModelKind = "pack"
	// ModelLinear applies a static efficiency with no voltage dynamics.
	ModelLinear ModelKind = "linear"
	// ModelEmpirical is the polynomial equivalent-circuit model.
	ModelEmpirical ModelKind = "empirical"
)

// ParseModelKind converts a configuration string into a ModelKind.
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(s) {
	case ModelPack, ModelLinear, ModelEmpirical:
		return ModelKind(s), nil
	default:
		return "", fmt.Errorf("unknown battery model %q", s)
	}
}

// String returns the configuration spelling of the model kind.
func (k ModelKind) String() string { return string(k) }
