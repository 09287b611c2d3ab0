package gpsl

import "testing"

func TestParsePermissionRoundTrip(t *testing.T) {
	names := []string{
		"Administrator", "StandardIO", "FileRead", "FileWrite", "Network", "Exec",
	}
	for _, name := range names {
		perm, err := ParsePermission(name)
		if err != nil {
			t.Fatalf("ParsePermission(%q) error: %v", name, err)
		}
		if perm.String() != name {
			t.Fatalf("round trip %q -> %s", name, perm)
		}
	}
}

func TestParsePermissionUnknown(t *testing.T) {
	_, err := ParsePermission("Teleport")
	wantReason(t, err, ErrUnknownPermission)

	// names are case-sensitive
	_, err = ParsePermission("network")
	wantReason(t, err, ErrUnknownPermission)
}

func TestGranted(t *testing.T) {
	accept := []Permission{Network, FileRead}
	reject := []Permission{FileRead}

	if !Granted(Network, accept, reject) {
		t.Fatal("accepted permission not granted")
	}
	// reject wins over accept for the same token
	if Granted(FileRead, accept, reject) {
		t.Fatal("rejected permission granted")
	}
	if Granted(Exec, accept, reject) {
		t.Fatal("unlisted permission granted")
	}
	if Granted(Network, nil, nil) {
		t.Fatal("empty accept set granted a permission")
	}
}
