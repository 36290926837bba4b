package main

import "testing"

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"watch", "tail", "logs"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%q): %v", name, err)
		}
		if cmd.Name() != name {
			t.Fatalf("Find(%q) = %q", name, cmd.Name())
		}
	}
	for _, flag := range []string{"config", "prefs", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing persistent flag --%s", flag)
		}
	}
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"tail", "extra"})
	if err := root.Execute(); err == nil {
		t.Fatalf("tail with arguments succeeded, want error")
	}
}
