package cmd

import (
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-u", "x", "--config", "a.yaml"}, "a.yaml"},
		{[]string{"--config=b.yaml"}, "b.yaml"},
		{[]string{"-c", "c.yaml", "-t", "5"}, "c.yaml"},
		{[]string{"-c=d.yaml"}, "d.yaml"},
		{[]string{"-u", "x"}, ""},
		{[]string{"--", "--config", "e.yaml"}, ""},
	}
	for _, tt := range tests {
		if got := configPath(tt.args); got != tt.want {
			t.Errorf("configPath(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestIntSliceValueReplacesFileValues(t *testing.T) {
	codes := []int{500}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&intSliceValue{target: &codes}, "codes", "")

	if err := fs.Parse([]string{"--codes", "403,404", "--codes", "410"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(codes, []int{403, 404, 410}) {
		t.Fatalf("codes = %v", codes)
	}
	if err := fs.Parse([]string{"--codes", "abc"}); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}

func TestFormatFlag(t *testing.T) {
	line := formatFlag(rootCmd.Flags().Lookup("threads"))
	if !strings.Contains(line, "-t, --threads int") || !strings.Contains(line, "(default 25)") {
		t.Fatalf("formatFlag = %q", line)
	}
}

func TestHelpGroupsNameRealFlags(t *testing.T) {
	for _, g := range helpGroups {
		for _, name := range g.flags {
			if rootCmd.Flags().Lookup(name) == nil {
				t.Errorf("help group %s lists unknown flag %q", g.title, name)
			}
		}
	}
}
