package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scribeflow/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func TestShouldDiarizePrecedence(t *testing.T) {
	d := Defaults{
		ByType: map[domain.ContentType]bool{
			domain.ContentTypeMeeting:   true,
			domain.ContentTypeVoiceNote: false,
		},
		BySubcategory: map[string]bool{
			domain.SubcategoryKey(domain.ContentTypeMeeting, "standup"):     false,
			domain.SubcategoryKey(domain.ContentTypeVoiceNote, "interview"): true,
		},
	}

	cases := []struct {
		name     string
		ct       domain.ContentType
		sub      string
		override *bool
		want     bool
	}{
		{"type default on", domain.ContentTypeMeeting, "", nil, true},
		{"type default off", domain.ContentTypeVoiceNote, "", nil, false},
		{"subcategory overrides type", domain.ContentTypeMeeting, "standup", nil, false},
		{"subcategory enables over off type", domain.ContentTypeVoiceNote, "interview", nil, true},
		{"unknown subcategory falls back to type", domain.ContentTypeMeeting, "retro", nil, true},
		{"override beats subcategory", domain.ContentTypeMeeting, "standup", boolPtr(true), true},
		{"override beats type", domain.ContentTypeMeeting, "", boolPtr(false), false},
		{"unconfigured type defaults off", domain.ContentTypeLecture, "", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldDiarize(tc.ct, tc.sub, tc.override, d)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestShouldDiarizeEmptyDefaults(t *testing.T) {
	assert.False(t, ShouldDiarize(domain.ContentTypeMeeting, "standup", nil, Defaults{}))
	assert.True(t, ShouldDiarize(domain.ContentTypeMeeting, "", boolPtr(true), Defaults{}))
}

func TestDefaultsFromSettings(t *testing.T) {
	s := domain.Settings{
		DiarizeByType: map[domain.ContentType]bool{
			domain.ContentTypeMeeting:   true,
			domain.ContentTypeVoiceNote: false,
		},
	}
	d := DefaultsFromSettings(s)
	assert.True(t, ShouldDiarize(domain.ContentTypeMeeting, "", nil, d))
	assert.False(t, ShouldDiarize(domain.ContentTypeVoiceNote, "", nil, d))
}
