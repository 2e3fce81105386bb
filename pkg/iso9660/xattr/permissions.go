package xattr

import (
	"fmt"
	"os"
)

// Permissions is the 16-bit permission field of an Extended Attribute Record (ECMA-119 9.5.3). Each odd bit is fixed
// to 1; a set even bit denies the corresponding access.
type Permissions uint16

const (
	SystemReadDenied       Permissions = 1 << 0
	SystemExecuteDenied    Permissions = 1 << 2
	OwnerReadDenied        Permissions = 1 << 4
	OwnerExecuteDenied     Permissions = 1 << 6
	GroupReadRestricted    Permissions = 1 << 8
	GroupExecuteRestricted Permissions = 1 << 10
	OtherReadDenied        Permissions = 1 << 12
	OtherExecuteDenied     Permissions = 1 << 14

	fixedBits Permissions = 1<<1 | 1<<3 | 1<<5 | 1<<7 | 1<<9 | 1<<11 | 1<<13 | 1<<15
)

// NewPermissions sets the fixed bits on top of the given deny flags.
func NewPermissions(deny Permissions) Permissions {
	return deny | fixedBits
}

// Validate checks the fixed bits.
func (p Permissions) Validate() error {
	if p&fixedBits != fixedBits {
		return fmt.Errorf("invalid permissions: fixed bits not all set in 0x%04X", uint16(p))
	}
	return nil
}

// FileMode converts the record permissions to POSIX read and execute bits. Write access is never granted since the
// medium is read-only.
func (p Permissions) FileMode() os.FileMode {
	var mode os.FileMode
	grant := func(denied Permissions, bit os.FileMode) {
		if p&denied == 0 {
			mode |= bit
		}
	}
	grant(OwnerReadDenied, 0o400)
	grant(OwnerExecuteDenied, 0o100)
	grant(GroupReadRestricted, 0o040)
	grant(GroupExecuteRestricted, 0o010)
	grant(OtherReadDenied, 0o004)
	grant(OtherExecuteDenied, 0o001)
	return mode
}
