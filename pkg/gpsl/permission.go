package gpsl

import "fmt"

// Permission is a named capability token gating access to host-provided
// functionality. Scripts name permissions with string literals in block
// annotations; unrecognized names are rejected at load time, never at
// execution time.
type Permission int

const (
	Administrator Permission = iota
	StandardIO
	FileRead
	FileWrite
	Network
	Exec
)

func (p Permission) String() string {
	switch p {
	case Administrator:
		return "Administrator"
	case StandardIO:
		return "StandardIO"
	case FileRead:
		return "FileRead"
	case FileWrite:
		return "FileWrite"
	case Network:
		return "Network"
	case Exec:
		return "Exec"
	default:
		return fmt.Sprintf("Permission(%d)", int(p))
	}
}

// ParsePermission resolves a permission token named by a script string
// literal. Unknown names fail with ErrUnknownPermission.
func ParsePermission(name string) (Permission, error) {
	switch name {
	case "Administrator":
		return Administrator, nil
	case "StandardIO":
		return StandardIO, nil
	case "FileRead":
		return FileRead, nil
	case "FileWrite":
		return FileWrite, nil
	case "Network":
		return Network, nil
	case "Exec":
		return Exec, nil
	default:
		return 0, Err{
			ErrUnknownPermission,
			fmt.Sprintf("%s is not a known permission", name),
		}
	}
}

// Granted reports whether p is usable under an accept/reject pair:
// it must appear in accept and must not appear in reject. External
// handlers use this to enforce their own capability requirements.
func Granted(p Permission, accept, reject []Permission) bool {
	return hasPermission(accept, p) && !hasPermission(reject, p)
}

func hasPermission(perms []Permission, p Permission) bool {
	for _, q := range perms {
		if q == p {
			return true
		}
	}
	return false
}

// Permission pairs are copied wherever they cross a frame or call
// boundary, so later narrowing can never alias an ancestor's sets.
func copyPermissions(perms []Permission) []Permission {
	if perms == nil {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
