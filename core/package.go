package core

import (
	"github.com/ethereum/go-ethereum/common"

	"linearis/sbor"
)

// Blueprint is one exported type definition inside a Package: a name plus
// the set of methods the ABI export advertises for it.
type Blueprint struct {
	Name    string
	Address Address // derived via DeriveBlueprintAddress
	Methods []MethodABI
}

// Mutability distinguishes whether a method may mutate component state.
type Mutability int

const (
	Immutable Mutability = iota
	Mutable
)

func (m Mutability) String() string {
	if m == Mutable {
		return "Mutable"
	}
	return "Immutable"
}

// MethodABI is one entry of a blueprint's exported ABI, as produced by the
// guest's <Blueprint>_abi export and described with sbor's Type tree.
type MethodABI struct {
	Name       string
	Mutability Mutability
	Inputs     []sbor.Type
	Output     sbor.Type
}

// Package is validated, instantiable module bytes plus the blueprints it
// exports.
type Package struct {
	Address    Address
	ModuleInst ModuleInstance
	Blueprints map[string]*Blueprint
}

// Component is one instantiated blueprint: its encoded state bytes may
// reference VIDs/MIDs owned by this component.
type Component struct {
	Address       Address
	Package       Address
	BlueprintName string
	State         []byte // SBOR no-metadata encoding of the component's declared state type

	// Fingerprint is a stable, human-displayable identifier; see
	// ComponentFingerprint.
	Fingerprint common.Hash
}
