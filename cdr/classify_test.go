package cdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		skill string
		want  Category
	}{
		{"VM_AfterHours", CategoryAfterHours},
		{"After Hours OB Callback", CategoryAfterHours},
		{"IB_NoAgent", CategoryNoAgent},
		{"No Agent VM", CategoryNoAgent},
		{"IB_General", CategoryInbound},
		{"Support IB", CategoryInbound},
		{"OB_Collections", CategoryOutbound},
		{"Sales VM", CategoryVoicemail},
		{"Deployment Queue", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.skill, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.skill))
		})
	}
}

func TestClassifierCustomTags(t *testing.T) {
	c, err := NewClassifier([]Tag{
		{Match: "Call Back", Category: "Outbound"},
		{Match: "vm", Category: "Voicemail"},
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryOutbound, c.Classify("VM callback"))
	assert.Equal(t, "callback", c.Tags()[0].Match)

	_, err = NewClassifier([]Tag{{Match: "x", Category: "Chat"}})
	assert.Error(t, err)
	_, err = NewClassifier([]Tag{{Match: "  ", Category: CategoryInbound}})
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("AfterHours")
	assert.True(t, ok)
	assert.Equal(t, CategoryAfterHours, c)

	c, ok = ParseCategory("no agent")
	assert.True(t, ok)
	assert.Equal(t, CategoryNoAgent, c)

	_, ok = ParseCategory("Chat")
	assert.False(t, ok)
}

func TestAttribute(t *testing.T) {
	for _, c := range Categories {
		in, ex := Attribute(c, "ani", "dnis")
		if c == CategoryOutbound {
			assert.Equal(t, "ani", in, c)
			assert.Equal(t, "dnis", ex, c)
			continue
		}
		assert.Equal(t, "dnis", in, c)
		assert.Equal(t, "ani", ex, c)
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver(map[string]Department{
		"Field Services": DeptDeployment,
		"Billing":        DeptBilling,
	})
	assert.Equal(t, DeptDeployment, r.Resolve("field services "))
	assert.Equal(t, DeptBilling, r.Resolve("Billing"))
	assert.Equal(t, DeptOther, r.Resolve("Unknown Team"))
	assert.Equal(t, DeptOther, r.Resolve(""))
	assert.Equal(t, 2, r.Len())
}
