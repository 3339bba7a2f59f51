package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("JXLFRAME_TEST_SET", "hello")
	t.Setenv("JXLFRAME_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "value: ${JXLFRAME_TEST_SET}", "value: hello"},
		{"unset", "value: ${JXLFRAME_TEST_UNSET}", "value: "},
		{"default when unset", "value: ${JXLFRAME_TEST_UNSET:-fallback}", "value: fallback"},
		{"default when empty", "value: ${JXLFRAME_TEST_EMPTY:-fallback}", "value: fallback"},
		{"default ignored when set", "value: ${JXLFRAME_TEST_SET:-fallback}", "value: hello"},
		{"empty default", "value: ${JXLFRAME_TEST_UNSET:-}", "value: "},
		{"multiple", "${JXLFRAME_TEST_SET}/${JXLFRAME_TEST_UNSET:-x}/end", "hello/x/end"},
		{"bare dollar kept", "price: $5 and $JXLFRAME_TEST_SET", "price: $5 and $JXLFRAME_TEST_SET"},
		{"invalid name kept", "${1ABC}", "${1ABC}"},
		{"no patterns", "plain text", "plain text"},
		{"default with colon", "url: ${JXLFRAME_TEST_UNSET:-http://localhost:8080}", "url: http://localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpand_Lookup(t *testing.T) {
	calls := 0
	lookup := func(name string) (string, bool) {
		calls++
		if name == "A" {
			return "1", true
		}
		return "", false
	}
	if got := expand("${A}${B:-2}", lookup); got != "12" {
		t.Errorf("expand = %q, want 12", got)
	}
	if calls != 2 {
		t.Errorf("lookup calls = %d, want 2", calls)
	}
}
