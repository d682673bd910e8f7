package main

import "testing"

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	want := map[string]bool{"serve": false, "migrate-check": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("expected subcommand %q to be registered, got %v", n, names)
		}
	}
}

func TestDialectForRejectsUnknownName(t *testing.T) {
	if _, err := dialectFor("oracle"); err == nil {
		t.Fatal("expected an error for an unsupported dialect")
	}
}

func TestDialectForKnownNames(t *testing.T) {
	for _, name := range []string{"postgres", "mysql", "sqlite"} {
		if _, err := dialectFor(name); err != nil {
			t.Errorf("dialectFor(%q): %v", name, err)
		}
	}
}
