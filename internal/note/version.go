package note

import "fmt"

// ProofType tags what a proof asserts. It is the low byte of a Version.
type ProofType uint8

const (
	ProofTransfer ProofType = 1
	ProofMint     ProofType = 2
	ProofBurn     ProofType = 3
	ProofDeposit  ProofType = 4
	ProofWithdraw ProofType = 5
	ProofApprove  ProofType = 6
)

// Valid reports whether t is a known proof type.
func (t ProofType) Valid() bool {
	return t >= ProofTransfer && t <= ProofApprove
}

// IsTransfer reports whether t produces a TransferResult.
func (t ProofType) IsTransfer() bool {
	return t == ProofTransfer || t == ProofDeposit || t == ProofWithdraw
}

func (t ProofType) String() string {
	switch t {
	case ProofTransfer:
		return "transfer"
	case ProofMint:
		return "mint"
	case ProofBurn:
		return "burn"
	case ProofDeposit:
		return "deposit"
	case ProofWithdraw:
		return "withdraw"
	case ProofApprove:
		return "approve"
	default:
		return fmt.Sprintf("proof(%d)", uint8(t))
	}
}

// Version packs name<<24 | major<<16 | minor<<8 | proof type.
// Template versions leave the proof type byte at zero.
type Version uint32

// MakeVersion packs a template version.
func MakeVersion(name, major, minor uint8) Version {
	return Version(uint32(name)<<24 | uint32(major)<<16 | uint32(minor)<<8)
}

// Name returns the algorithm name byte.
func (v Version) Name() uint8 { return uint8(v >> 24) }

// Major returns the major version byte.
func (v Version) Major() uint8 { return uint8(v >> 16) }

// Minor returns the minor version byte.
func (v Version) Minor() uint8 { return uint8(v >> 8) }

// Type returns the proof type byte.
func (v Version) Type() ProofType { return ProofType(v) }

// WithType returns v with its proof type byte replaced.
func (v Version) WithType(t ProofType) Version {
	return v&^0xFF | Version(t)
}

// Template returns v with the proof type byte cleared.
func (v Version) Template() Version {
	return v &^ 0xFF
}

func (v Version) String() string {
	if v.Type() == 0 {
		return fmt.Sprintf("%d.%d.%d", v.Name(), v.Major(), v.Minor())
	}

	return fmt.Sprintf("%d.%d.%d/%s", v.Name(), v.Major(), v.Minor(), v.Type())
}
