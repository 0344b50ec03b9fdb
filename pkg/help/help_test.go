package help

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Errorf("QUICKREF does not contain version string %s", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	assert.Len(t, Topics, len(TopicList))
}

func TestAllExpectedTopics(t *testing.T) {
	expected := []string{"syntax", "types", "classes", "arrays", "stdlib", "robot", "errors", "examples"}
	assert.ElementsMatch(t, expected, TopicList)
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		query  string
		expect string
	}{
		{"syntax", "syntax"},
		{"SYNTAX", "syntax"},
		{"  robot ", "robot"},
		{"err", "errors"},
		{"ex", "examples"},
		{"cl", "classes"},
		{"a", "arrays"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			name, content, err := MatchTopic(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, name)
			assert.Equal(t, Topics[tt.expect], content)
		})
	}
}

func TestMatchTopicErrors(t *testing.T) {
	tests := []struct {
		query    string
		contains string
	}{
		{"nonexistent", "unknown help topic"},
		{"", "unknown help topic"},
		{"constructor", "unknown help topic"},
		{"__proto__", "unknown help topic"},
		{"s", "ambiguous help topic"},
		{"e", "errors, examples"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, _, err := MatchTopic(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}

func TestStdlibIndex(t *testing.T) {
	idx := StdlibIndex()
	for _, want := range []string{
		"Math: ",
		"Robot: ",
		"sqrt(number)",
		"randomInt(number, number)",
		"moveFwd(_)",
		"beginPoly()",
		"COLOR_RED",
		"CANVAS_WIDTH",
		"PI",
	} {
		assert.Contains(t, idx, want)
	}
	assert.Less(t, strings.Index(idx, "Math: "), strings.Index(idx, "Robot: "))
}

func TestStdlibIndexCount(t *testing.T) {
	idx := StdlibIndex()
	if !strings.Contains(idx, "Total: 43 functions, 20 variables") {
		t.Errorf("StdlibIndex should report 43 functions and 20 variables, got:\n%s", idx)
	}
}
